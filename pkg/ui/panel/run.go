package panel

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Run drives the panel TUI until the user quits or ctx ends. Pushes read
// from the channel render live; a closed channel stops forwarding but not
// the panel.
func Run(ctx context.Context, actions Actions, pushes <-chan Push, info Info) error {
	model := newModel(ctx, actions, info)
	program := tea.NewProgram(model)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ctx.Done():
				program.Quit()
				return
			case <-done:
				return
			case push, ok := <-pushes:
				if !ok {
					return
				}
				program.Send(push)
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(renderGoodbyeBanner())
	return nil
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("24")).
		Padding(1, 2)

	return style.Render("⛓ Crosswire panel closed")
}
