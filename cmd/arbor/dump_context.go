package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

type dumpedMessage struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}

type dumpedContext struct {
	Node     string          `yaml:"node"`
	Tokens   int             `yaml:"tokens"`
	Messages []dumpedMessage `yaml:"messages"`
}

// newDumpContextCommand builds a small demo tree with one fork and
// prints the linearized context each leaf would send upstream. Useful to
// inspect how ancestor truncation and the branch transition behave.
func newDumpContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-context",
		Short: "print the linearized context of a demo conversation tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := conversation.NewManager(conversation.WithRoot(
				conversation.NewMessage(conversation.RoleUser, "Explain how rivers carve canyons."),
				conversation.NewMessage(conversation.RoleAssistant,
					"Rivers carve canyons through abrasion and plucking. "+
						"Sediment carried by the water grinds the bedrock down, "+
						"while hydraulic pressure pries loose blocks from the channel floor."),
			))

			root := manager.Selected()
			source := root.LastMessage()

			branch, err := manager.CreateBranch(
				root.ID, source.ID,
				"hydraulic pressure pries loose blocks",
				"",
			)
			if err != nil {
				return err
			}

			tree := manager.Tree()
			dumps := make([]dumpedContext, 0, tree.Len())
			for _, id := range []conversation.NodeID{root.ID, branch.ID} {
				linear := conversation.Linearize(tree, id)
				ictx := conversation.NewInferenceContext(linear)
				tokens, err := ictx.TokenCount()
				if err != nil {
					return err
				}

				dump := dumpedContext{Node: id.String(), Tokens: tokens}
				for _, msg := range linear {
					dump.Messages = append(dump.Messages, dumpedMessage{
						Role: string(msg.Role),
						Text: msg.Text,
					})
				}
				dumps = append(dumps, dump)
			}

			return yaml.NewEncoder(os.Stdout).Encode(dumps)
		},
	}
}
