package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/k-negishi/google-calendar-hours/internal/app"
	"github.com/k-negishi/google-calendar-hours/internal/domain"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
	"github.com/k-negishi/google-calendar-hours/internal/presenter"
)

func newMonthsCmd(current func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "選択できる月の一覧を表示",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current().Config

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VALUE\tLABEL")
			for _, opt := range domain.MonthOptions(cfg.FirstYear, cfg.Location()) {
				fmt.Fprintf(w, "%s\t%s\n", opt.Value, opt.Label)
			}
			return w.Flush()
		},
	}
}

func newSummaryCmd(current func() *app.App) *cobra.Command {
	var (
		month   string
		token   string
		hidden  []string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "指定した月のカレンダー別合計時間を表示",
		Long: `指定した月（YYYY-MM またはRFC3339形式）の予定を全カレンダーから取得し、
カレンダーごとの合計時間を表示します。終日の予定は集計に含まれません。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			ctx := cmd.Context()

			selected, err := domain.ParseMonth(month, a.Config.Location())
			if err != nil {
				return err
			}

			fromStore := false
			if token == "" {
				if token, err = a.Store.Get(ctx); err != nil {
					if errors.Is(err, domain.ErrMissingCredential) {
						fmt.Fprintln(cmd.ErrOrStderr(), presenter.MessageNotAuthenticated)
					}
					return err
				}
				fromStore = true
			}

			snapshot, err := a.Dashboard.Select(ctx, token, selected)
			if err != nil {
				if fromStore && domain.IsAuthError(err) {
					if clearErr := a.Store.Clear(ctx); clearErr != nil {
						a.Logger.WarnContext(ctx, "期限切れトークンの削除に失敗しました", logging.Err(clearErr))
					}
				}
				fmt.Fprintln(cmd.ErrOrStderr(), presenter.Message(snapshot.State, presenter.View{}))
				return err
			}

			overrides := make(map[string]bool, len(hidden))
			for _, id := range hidden {
				overrides[id] = false
			}
			view := presenter.Filter(snapshot.Dataset, overrides)

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			return writeSummary(cmd.OutOrStdout(), snapshot.State, view, snapshot.FailedCalendars)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "集計する月（例: 2024-03）")
	cmd.Flags().StringVar(&token, "token", "", "保存済みトークンの代わりに使うアクセストークン")
	cmd.Flags().StringSliceVar(&hidden, "hide", nil, "グラフから除外するカレンダーID（複数指定可）")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "グラフ用データをJSONで出力")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

// writeSummary 凡例を表形式で出力（非表示のカレンダーは合計に含めない）
func writeSummary(out io.Writer, state domain.CycleState, view presenter.View, failed []string) error {
	fmt.Fprintln(out, presenter.Message(state, view))
	if len(view.Legend) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CALENDAR\tHOURS\tVISIBLE")
	var total float64
	for _, entry := range view.Legend {
		if entry.Visible {
			total += entry.Hours
		}
		fmt.Fprintf(w, "%s\t%.1f\t%t\n", entry.Label, entry.Hours, entry.Visible)
	}
	fmt.Fprintf(w, "TOTAL\t%.1f\t\n", total)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(failed) > 0 {
		fmt.Fprintf(out, "取得に失敗したカレンダー（0時間として集計）: %s\n", strings.Join(failed, ", "))
	}
	return nil
}

func newLoginCmd(current func() *app.App) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "アクセストークンを保存",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current().Store.Set(cmd.Context(), strings.TrimSpace(token)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "アクセストークンを保存しました")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Google APIのアクセストークン")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCmd(current func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "保存済みのアクセストークンを削除",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current().Store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "アクセストークンを削除しました")
			return nil
		},
	}
}
