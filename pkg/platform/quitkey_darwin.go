//go:build darwin

package platform

import "golang.design/x/hotkey"

// QuitModifiers is the modifier set of the platform quit shortcut
func QuitModifiers() []hotkey.Modifier {
	return []hotkey.Modifier{hotkey.ModCmd}
}
