package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewPlanCmd создаёт группу команд для управления планами.
func NewPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage travel plans",
	}

	cmd.AddCommand(
		newPlanListCmd(clientFn, outputFn),
		newPlanCreateCmd(clientFn, outputFn),
		newPlanShowCmd(clientFn, outputFn),
		newPlanUpdateCmd(clientFn, outputFn),
		newPlanDeleteCmd(clientFn, outputFn),
		newPlanAdvanceCmd(clientFn, outputFn),
		newPlanRunCmd(clientFn, outputFn),
		newPlanAbandonCmd(clientFn, outputFn),
	)

	return cmd
}

var planHeaders = []string{"ID", "TITLE", "DESTINATION", "DATES", "STATUS", "STAGE", "CREATED"}

func planRow(p PlanResponse) []string {
	stage := p.CurrentStage
	if p.Finalized {
		stage = "-"
	}
	return []string{
		p.ID,
		p.Title,
		p.Query.Destination,
		p.Query.DepartureDate + " → " + p.Query.ReturnDate,
		p.Status,
		stage,
		p.CreatedAt,
	}
}

func newPlanListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plans, err := client.ListPlans(ListPlansOpts{Status: status, Limit: limit})
			if err != nil {
				return err
			}

			rows := make([][]string, len(plans))
			for i, p := range plans {
				rows[i] = planRow(p)
			}

			out.Print(planHeaders, rows, plans)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, processing, completed, error)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

// tripFlags — флаги параметров поездки.
type tripFlags struct {
	origin      string
	destination string
	departure   string
	ret         string
	budget      string
	preferences string
}

func (f *tripFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.origin, "origin", "", "Departure city or airport")
	cmd.Flags().StringVar(&f.destination, "destination", "", "Destination")
	cmd.Flags().StringVar(&f.departure, "departure", "", "Departure date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.ret, "return", "", "Return date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.budget, "budget", "", "Budget, e.g. \"1500 EUR\"")
	cmd.Flags().StringVar(&f.preferences, "preferences", "", "Free-text preferences")
}

func (f *tripFlags) request() TripQueryRequest {
	return TripQueryRequest{
		Origin:        f.origin,
		Destination:   f.destination,
		DepartureDate: f.departure,
		ReturnDate:    f.ret,
		Budget:        f.budget,
		Preferences:   f.preferences,
	}
}

// merge накладывает изменённые флаги на текущие параметры.
func (f *tripFlags) merge(cmd *cobra.Command, q TripQuery) TripQueryRequest {
	req := TripQueryRequest{
		Origin:        q.Origin,
		Destination:   q.Destination,
		DepartureDate: q.DepartureDate,
		ReturnDate:    q.ReturnDate,
		Budget:        q.Budget,
		Preferences:   q.Preferences,
	}
	changed := cmd.Flags().Changed
	if changed("origin") {
		req.Origin = f.origin
	}
	if changed("destination") {
		req.Destination = f.destination
	}
	if changed("departure") {
		req.DepartureDate = f.departure
	}
	if changed("return") {
		req.ReturnDate = f.ret
	}
	if changed("budget") {
		req.Budget = f.budget
	}
	if changed("preferences") {
		req.Preferences = f.preferences
	}
	return req
}

func (f *tripFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"origin", "destination", "departure", "return", "budget", "preferences"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func newPlanCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var description string
	var trip tripFlags

	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create a new plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plan, err := client.CreatePlan(CreatePlanRequest{
				Title:       args[0],
				Description: description,
				Query:       trip.request(),
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan created: %s", plan.ID))
			out.Print(planHeaders, [][]string{planRow(*plan)}, plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Plan description")
	trip.register(cmd)
	cmd.MarkFlagRequired("destination")
	cmd.MarkFlagRequired("departure")
	cmd.MarkFlagRequired("return")

	return cmd
}

func newPlanShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show plan details and stage progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plan, err := client.GetPlan(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(plan)
				return nil
			}

			out.Table(planHeaders, [][]string{planRow(*plan)})
			fmt.Fprintln(out.w)

			rows := make([][]string, len(plan.Stages))
			for i, s := range plan.Stages {
				count := ""
				if s.Count > 0 {
					count = strconv.Itoa(s.Count)
				}
				rows[i] = []string{strconv.Itoa(i + 1), s.Stage, s.State, count, s.ErrorKind, s.Error}
			}
			out.Table([]string{"#", "STAGE", "STATE", "COUNT", "FAILURE", "ERROR"}, rows)

			if plan.Error != "" {
				out.Error(plan.Error)
			}
			return nil
		},
	}
}

func newPlanUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var title, description string
	var trip tripFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update plan title, description or trip parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var req UpdatePlanRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if trip.changed(cmd) {
				current, err := client.GetPlan(args[0])
				if err != nil {
					return err
				}
				q := trip.merge(cmd, current.Query)
				req.Query = &q
			}

			if req.Title == nil && req.Description == nil && req.Query == nil {
				return fmt.Errorf("nothing to update")
			}

			plan, err := client.UpdatePlan(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan updated: %s", plan.ID))
			out.Print(planHeaders, [][]string{planRow(*plan)}, plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	trip.register(cmd)

	return cmd
}

func newPlanDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeletePlan(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Plan deleted: %s", args[0]))
			return nil
		},
	}
}

func newPlanAdvanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "advance ID",
		Short: "Run the current stage of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			for {
				resp, err := client.AdvancePlan(args[0])
				if err != nil {
					return err
				}

				for _, e := range resp.Events {
					out.Event(e)
				}

				if resp.Halt != nil {
					msg := fmt.Sprintf("stage %s halted: %s", resp.Halt.Stage, resp.Halt.Kind)
					if len(resp.Halt.Fields) > 0 {
						msg += " (" + strings.Join(resp.Halt.Fields, ", ") + ")"
					}
					out.Print(planHeaders, [][]string{planRow(resp.Plan)}, resp)
					return fmt.Errorf("%s", msg)
				}

				if !all || resp.Outcome == "completed" {
					out.Print(planHeaders, [][]string{planRow(resp.Plan)}, resp)
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Advance until the plan is completed or a stage halts")

	return cmd
}

func newPlanRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "run ID",
		Short: "Request a background build of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := clientFn().RunPlan(args[0])
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Plan build requested: %s", plan.ID))
			return nil
		},
	}
}

func newPlanAbandonCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "abandon ID",
		Short: "Stop building a plan for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := clientFn().AbandonPlan(args[0], reason)
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Plan abandoned: %s", plan.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown on the plan")

	return cmd
}
