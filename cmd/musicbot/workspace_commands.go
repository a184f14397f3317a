package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"musicbot/internal/assets"
	"musicbot/internal/daemonrun"
	"musicbot/internal/scratch"
	"musicbot/internal/workspace"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect and provision per-user workspaces",
	}
	workspaceCmd.AddCommand(newWorkspaceSetupCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceListCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceShowCommand(ctx))
	return workspaceCmd
}

func (c *commandContext) services(cmd *cobra.Command) (*daemonrun.Services, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.cliLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return daemonrun.Assemble(cfg, logger), nil
}

func newWorkspaceSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup <user-id>",
		Short: "Create a user's workspace and seed config.json from the template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.services(cmd)
			if err != nil {
				return err
			}
			created, err := svc.Workspaces.Ensure(cmd.Context(), userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Created workspace %s\n", svc.Workspaces.Dir(userID))
			} else {
				fmt.Fprintf(out, "Workspace %s already exists\n", svc.Workspaces.Dir(userID))
			}
			return nil
		},
	}
}

func newWorkspaceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned workspaces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := ctx.services(cmd)
			if err != nil {
				return err
			}
			users, err := svc.Workspaces.Users()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No workspaces")
				return nil
			}
			rows := make([][]string, 0, len(users))
			for _, id := range users {
				slots, err := svc.Assets.List(id)
				if err != nil {
					return err
				}
				rows = append(rows, []string{strconv.FormatInt(id, 10), strconv.Itoa(len(slots))})
			}
			fmt.Fprint(out, renderTable([]string{"User", "Assets"}, rows, 0, 1))
			return nil
		},
	}
}

type workspaceView struct {
	UserID  int64             `json:"user_id"`
	Dir     string            `json:"dir"`
	Config  map[string]string `json:"config"`
	Keys    []string          `json:"config_keys"`
	Assets  []assets.Slot     `json:"assets"`
	Missing []string          `json:"missing_slots,omitempty"`
	Scratch []scratch.Entry   `json:"scratch,omitempty"`
}

func newWorkspaceShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's config keys and asset slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.services(cmd)
			if err != nil {
				return err
			}
			if !svc.Workspaces.Exists(userID) {
				return fmt.Errorf("no workspace for user %d (run `musicbot workspace setup %d`)", userID, userID)
			}
			doc, err := svc.Configs.Read(cmd.Context(), userID)
			if err != nil {
				return err
			}
			slots, err := svc.Assets.List(userID)
			if err != nil {
				return err
			}

			scratchEntries, err := scratch.List(svc.Workspaces.ScratchDir(userID))
			if err != nil {
				return err
			}

			view := workspaceView{
				UserID:  userID,
				Dir:     svc.Workspaces.Dir(userID),
				Config:  make(map[string]string),
				Keys:    doc.Keys(),
				Assets:  slots,
				Scratch: scratchEntries,
			}
			for _, key := range view.Keys {
				raw, _ := doc.Get(key)
				view.Config[key] = string(raw)
			}
			present := make(map[workspace.Kind]bool, len(slots))
			for _, slot := range slots {
				present[slot.Kind] = true
			}
			for _, kind := range workspace.SlotKinds {
				if !present[kind] {
					view.Missing = append(view.Missing, kind.String())
				}
			}

			if asJSON {
				return writeJSON(cmd, view)
			}
			renderWorkspace(cmd, view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderWorkspace(cmd *cobra.Command, view workspaceView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(fmt.Sprintf("Workspace %d", view.UserID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Directory", statusInfo, view.Dir, colorize))
	fmt.Fprintln(out, renderStatusLine("All slots filled", statusInfo, yesNo(len(view.Missing) == 0), colorize))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(view.Keys))
	for _, key := range view.Keys {
		rows = append(rows, []string{key, truncateValue(view.Config[key], 60)})
	}
	fmt.Fprint(out, renderTable([]string{"Config key", "Value"}, rows))
	renderScratch(cmd, view.Scratch)

	if len(view.Assets) == 0 {
		fmt.Fprintln(out, "No assets uploaded")
		return
	}
	assetRows := make([][]string, 0, len(view.Assets))
	for _, slot := range view.Assets {
		assetRows = append(assetRows, []string{
			slot.Kind.String(),
			slot.Meta.OriginalName,
			strconv.FormatInt(slot.Meta.Size, 10),
			slot.Meta.StoredAt.Local().Format(time.DateTime),
		})
	}
	fmt.Fprint(out, renderTable([]string{"Slot", "Original name", "Bytes", "Stored"}, assetRows, 2))
}

func renderScratch(cmd *cobra.Command, entries []scratch.Entry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "Scratch is empty")
		return
	}
	var total int64
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		kind := "submission"
		if entry.Retained {
			kind = "retained"
		}
		total += entry.Size
		rows = append(rows, []string{entry.Name, kind, strconv.FormatInt(entry.Size, 10), entry.ModTime.Local().Format(time.DateTime)})
	}
	fmt.Fprint(out, renderTable([]string{"Scratch entry", "Kind", "Bytes", "Modified"}, rows, 2))
	fmt.Fprintf(out, "Scratch total: %d bytes\n", total)
}

func truncateValue(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
