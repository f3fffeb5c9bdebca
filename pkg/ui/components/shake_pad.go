package components

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/wakeup/pkg/challenge"
)

// DefaultPixelsPerG is the pointer jump between two motion events that
// reads as one g
const DefaultPixelsPerG = 20

// ShakePad stands in for the accelerometer: every pointer motion over the
// pad becomes a challenge.Sample whose magnitude grows with the jump
// between events.
type ShakePad struct {
	widget.BaseWidget
	PixelsPerG float32
	OnSample   func(challenge.Sample)

	// Now is the sample clock, time.Now when nil
	Now func() time.Time

	mu      sync.Mutex
	last    fyne.Position
	hasLast bool
	status  *widget.Label
}

// NewShakePad creates a pad reporting samples to onSample
func NewShakePad(onSample func(challenge.Sample)) *ShakePad {
	p := &ShakePad{
		PixelsPerG: DefaultPixelsPerG,
		OnSample:   onSample,
		status:     widget.NewLabel("Shake the mouse over this pad"),
	}
	p.status.Alignment = fyne.TextAlignCenter
	p.ExtendBaseWidget(p)
	return p
}

// SetStatus replaces the text shown on the pad
func (p *ShakePad) SetStatus(text string) {
	p.status.SetText(text)
}

// CreateRenderer implements fyne.Widget
func (p *ShakePad) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground))
	bg.StrokeColor = theme.Color(theme.ColorNamePrimary)
	bg.StrokeWidth = 2
	bg.SetMinSize(fyne.NewSize(360, 220))
	return widget.NewSimpleRenderer(container.NewStack(bg, container.NewCenter(p.status)))
}

// MouseIn implements desktop.Hoverable
func (p *ShakePad) MouseIn(e *desktop.MouseEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = e.Position
	p.hasLast = true
}

// MouseMoved implements desktop.Hoverable
func (p *ShakePad) MouseMoved(e *desktop.MouseEvent) {
	p.mu.Lock()
	prev, ok := p.last, p.hasLast
	p.last, p.hasLast = e.Position, true
	p.mu.Unlock()
	if !ok || p.OnSample == nil {
		return
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	s := motionSample(prev, e.Position, p.PixelsPerG)
	s.At = now()
	p.OnSample(s)
}

// MouseOut implements desktop.Hoverable
func (p *ShakePad) MouseOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasLast = false
}

// motionSample scales the pointer jump into g on the screen axes
func motionSample(prev, cur fyne.Position, pixelsPerG float32) challenge.Sample {
	if pixelsPerG <= 0 {
		pixelsPerG = DefaultPixelsPerG
	}
	return challenge.Sample{
		X: float64((cur.X - prev.X) / pixelsPerG),
		Y: float64((cur.Y - prev.Y) / pixelsPerG),
	}
}

var _ desktop.Hoverable = (*ShakePad)(nil)
