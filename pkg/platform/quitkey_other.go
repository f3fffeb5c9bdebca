//go:build !darwin

package platform

import "golang.design/x/hotkey"

func QuitModifiers() []hotkey.Modifier {
	return []hotkey.Modifier{hotkey.ModCtrl}
}
