package tui

import (
	"github.com/charmbracelet/bubbles/list"
)

type signInMethod int

const (
	methodGoogle signInMethod = iota
	methodGuest
)

type signInItem struct {
	method      signInMethod
	title       string
	description string
}

func (i signInItem) Title() string       { return i.title }
func (i signInItem) Description() string { return i.description }
func (i signInItem) FilterValue() string { return i.title }

func buildSignInItems(federated bool) []list.Item {
	google := signInItem{
		method:      methodGoogle,
		title:       "Sign in with Google",
		description: "Keeps your conversation tied to your account",
	}
	if !federated {
		google.description = "Not configured for this install"
	}
	return []list.Item{
		google,
		signInItem{
			method:      methodGuest,
			title:       "Quick Sign In",
			description: "Continue with just an email address",
		},
	}
}

func newSignInList(federated bool) list.Model {
	l := list.New(buildSignInItems(federated), list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

func selectedMethod(l list.Model) (signInMethod, bool) {
	item, ok := l.SelectedItem().(signInItem)
	if !ok {
		return 0, false
	}
	return item.method, true
}
