package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	libfsm "github.com/benleeph/lib-fsm"
	"github.com/benleeph/lib-fsm/observers"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a token through the traffic-light cycle until it breaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, ev, err := buildTrafficLight()
		if err != nil {
			return err
		}
		if logOn, _ := cmd.Flags().GetBool("log"); logOn {
			defer observers.NewSlogObserver(m, nil).Close()
		}

		printMove := func(n libfsm.TokenNotification) {
			fmt.Printf("%s: %s ---[ %s ]--> %s\n", n.TokenID, n.From, n.Event, n.To)
		}
		m.SubscribeToken(libfsm.TopicTokenTransitioned, printMove)
		m.SubscribeToken(libfsm.TopicTokenReachedFinalState, func(n libfsm.TokenNotification) {
			printMove(n)
			fmt.Printf("%s: reached final state %s\n", n.TokenID, n.To)
		})

		tokenID := libfsm.NewTokenID()
		if _, err := m.CreateTokenInstance(tokenID); err != nil {
			return err
		}
		fmt.Printf("%s: starting at %s\n", tokenID, m.DefaultInitialState())

		cycles, _ := cmd.Flags().GetInt("cycles")
		for i := 0; i < cycles; i++ {
			for _, e := range []*libfsm.Event{ev.secs60, ev.secs90, ev.secs10} {
				if _, err := m.UpdateTokenToNextState(tokenID, e, nil); err != nil {
					return err
				}
			}
		}
		if _, err := m.UpdateTokenToNextState(tokenID, ev.secs600, nil); err != nil {
			return err
		}

		// the light is broken now, show the engine refusing to move on
		if _, err := m.UpdateTokenToNextState(tokenID, ev.secs60, nil); err != nil {
			fmt.Fprintf(os.Stderr, "as expected: %v\n", err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Int("cycles", 3, "full Red->Green->Yellow->Red cycles before the breakdown")
	rootCmd.AddCommand(runCmd)
}
