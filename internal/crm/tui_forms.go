package crm

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func newTextInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 50
	return in
}

// newAmountInput is a short input for prices and payments
func newAmountInput(value string) textinput.Model {
	in := textinput.New()
	in.Placeholder = "0"
	in.CharLimit = 18
	in.Width = 16
	in.Prompt = ""
	in.SetValue(value)
	return in
}

// cycleFocus moves index by delta and wraps around n fields
func cycleFocus(index, delta, n int) int {
	if n == 0 {
		return 0
	}
	return ((index+delta)%n + n) % n
}

// focusInput focuses inputs[index] and blurs the rest; index -1 blurs all
func focusInput(inputs []textinput.Model, index int) tea.Cmd {
	var cmd tea.Cmd
	for i := range inputs {
		if i == index {
			cmd = inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	return cmd
}
