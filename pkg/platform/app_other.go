//go:build !darwin

package platform

// IsAppActive reports true where the focus state cannot be queried, so the
// ringing window is never pulled forward on these platforms
func IsAppActive() bool {
	return true
}

func ActivateApp() {}

func SetActivationPolicy() {}

func ShowInDock(bool) {}
