//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

static int wakeupAppActive(void) {
    return [NSApp isActive] ? 1 : 0;
}

static void wakeupActivate(void) {
    [NSApp activateIgnoringOtherApps:YES];
}

static void wakeupSetPolicy(int regular) {
    if (regular) {
        [NSApp setActivationPolicy:NSApplicationActivationPolicyRegular];
    } else {
        [NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
    }
}
*/
import "C"

// IsAppActive reports whether wakeup is the frontmost application
func IsAppActive() bool {
	return C.wakeupAppActive() == 1
}

// ActivateApp brings wakeup in front of every other application
func ActivateApp() {
	C.wakeupActivate()
}

// SetActivationPolicy keeps wakeup out of the Dock. It lives in the menu bar
// until an alarm rings.
func SetActivationPolicy() {
	C.wakeupSetPolicy(0)
}

// ShowInDock switches between a regular app, listed in the Dock and the app
// switcher while an alarm rings, and a menu bar accessory.
func ShowInDock(show bool) {
	if show {
		C.wakeupSetPolicy(1)
		return
	}
	C.wakeupSetPolicy(0)
}
