// Package schedule provides the CLI front end for the start slot scheduler.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/scheduler"
)

type scheduleArgs struct {
	teamsFile             string
	firstTakeoff          string
	minimumStartInterval  int
	minimumFinishInterval int
	aircraftSwitchTime    int
	trackerSwitchTime     int
	trackerStartLeadTime  int
	crewSwitchTime        int
	optimise              bool
}

//nolint:funlen // flag declarations
func NewScheduleCmd() *cobra.Command {
	args := &scheduleArgs{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "assigns start slots to the teams of a navigation task",
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			return runSchedule(args)
		},
	}
	cmd.Flags().StringVarP(&args.teamsFile,
		"teams",
		"t",
		"",
		"JSON file holding the team definitions")
	cmd.Flags().StringVar(&args.firstTakeoff,
		"first-takeoff",
		"",
		"time of the first takeoff (RFC 3339)")
	cmd.Flags().IntVar(&args.minimumStartInterval,
		"minimum-start-interval",
		5,
		"minimum minutes between any two starts")
	cmd.Flags().IntVar(&args.minimumFinishInterval,
		"minimum-finish-interval",
		0,
		"minimum minutes between any two finishes")
	cmd.Flags().IntVar(&args.aircraftSwitchTime,
		"aircraft-switch-time",
		30,
		"minutes needed to hand an aircraft to the next team")
	cmd.Flags().IntVar(&args.trackerSwitchTime,
		"tracker-switch-time",
		15,
		"minutes needed to hand a tracker to the next team")
	cmd.Flags().IntVar(&args.trackerStartLeadTime,
		"tracker-start-lead-time",
		0,
		"minutes a tracker must be active before the start")
	cmd.Flags().IntVar(&args.crewSwitchTime,
		"crew-switch-time",
		0,
		"minutes a crew member needs between two flights")
	cmd.Flags().BoolVar(&args.optimise,
		"optimise",
		true,
		"improve the constructive schedule with local search")
	//nolint:errcheck // flag exists
	cmd.MarkFlagRequired("teams")
	//nolint:errcheck // flag exists
	cmd.MarkFlagRequired("first-takeoff")
	return cmd
}

func runSchedule(args *scheduleArgs) error {
	firstTakeoff, err := time.Parse(time.RFC3339, args.firstTakeoff)
	if err != nil {
		return fmt.Errorf("invalid first takeoff time: %w", err)
	}
	data, err := os.ReadFile(args.teamsFile)
	if err != nil {
		return err
	}
	var teams []*model.TeamDefinition
	if err := json.Unmarshal(data, &teams); err != nil {
		return err
	}

	s := scheduler.New(scheduler.WithParams(scheduler.Params{
		MinimumStartInterval:  args.minimumStartInterval,
		MinimumFinishInterval: args.minimumFinishInterval,
		AircraftSwitchTime:    args.aircraftSwitchTime,
		TrackerSwitchTime:     args.trackerSwitchTime,
		TrackerStartLeadTime:  args.trackerStartLeadTime,
		CrewSwitchTime:        args.crewSwitchTime,
		Optimise:              args.optimise,
	}))
	result := s.Schedule(teams, firstTakeoff)
	fmt.Println(result.Message)
	for _, team := range result.Teams {
		fmt.Printf("team %d: start %s (slot %d)\n",
			team.PK, team.StartTime.Format("15:04"), team.StartSlot)
	}
	return nil
}
