package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Single-letter bindings only apply on screens that are not capturing text; esc, tab, ctrl+* always apply.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	next      key.Binding
	prev      key.Binding
	refresh   key.Binding
	open      key.Binding
	thumb     key.Binding
	login     key.Binding
	logout    key.Binding
	register  key.Binding
	upload    key.Binding
	tab       key.Binding
	shiftTab  key.Binding
	submit    key.Binding
	quit      key.Binding
	forceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
		prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev page")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open video")),
		thumb:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "open thumbnail")),
		login:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log in")),
		logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		register:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "register")),
		upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		shiftTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		forceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.back, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.next, k.prev, k.refresh},
		{k.open, k.thumb, k.upload},
		{k.login, k.logout, k.register},
		{k.tab, k.shiftTab, k.submit},
		{k.quit, k.forceQuit},
	}
}
