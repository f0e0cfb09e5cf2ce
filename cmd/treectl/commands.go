package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/pathmut"
)

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [path]",
		Short: "Print the value at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := a.db.Ref(args[0])
			export, _ := cmd.Flags().GetBool("export")
			if export {
				s, err := ref.Get(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(s.Export())
			}
			read := func(ctx context.Context) (any, error) {
				s, err := ref.Get(ctx)
				if err != nil {
					return nil, err
				}
				return s.Val(), nil
			}
			if a.cache == nil {
				v, err := read(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(v)
			}
			v, err := a.cache.Fetch(cmd.Context(), pathmut.KeyOf(ref).String(), read)
			if err != nil {
				return err
			}
			return a.print(v)
		},
	}
	cmd.Flags().Bool("export", false, "include priorities (.priority/.value)")
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [path] [value]",
		Short: "Replace the value at path; value is JSON or a bare string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pathmut.SetOptions[any]{MutationOptions: a.logged()}
			if cmd.Flags().Changed("priority") {
				raw, _ := cmd.Flags().GetString("priority")
				opts.Priority = parsePriority(raw)
			}
			m := pathmut.Set(a.client, a.db.Ref(args[0]), opts)
			if _, err := m.MutateAsync(cmd.Context(), parseValue(args[1])); err != nil {
				return err
			}
			a.dirty = true
			return nil
		},
	}
	cmd.Flags().String("priority", "", "node priority written with the value (number or string)")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [path] [json-object]",
		Short: "Write several relative paths below path at once",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch pathmut.UpdatePatch
			if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
				return fmt.Errorf("update expects a JSON object: %w", err)
			}
			m := pathmut.Update(a.client, a.db.Ref(args[0]), a.loggedPatch())
			if _, err := m.MutateAsync(cmd.Context(), patch); err != nil {
				return err
			}
			a.dirty = true
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [path]",
		Short: "Delete path and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := pathmut.Remove(a.client, a.db.Ref(args[0]), pathmut.MutationOptions[struct{}, struct{}]{})
			if _, err := m.MutateAsync(cmd.Context(), struct{}{}); err != nil {
				return err
			}
			a.dirty = true
			return nil
		},
	}
}

func (a *app) incrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incr [path]",
		Short: "Atomically add to the number at path (absent counts as 0)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetFloat64("by")
			m := pathmut.Transaction(a.client, a.db.Ref(args[0]), func(cur float64, _ bool) (float64, error) {
				return cur + by, nil
			}, pathmut.MutationOptions[struct{}, pathmut.TransactionResult[float64]]{})
			res, err := m.MutateAsync(cmd.Context(), struct{}{})
			if err != nil {
				return err
			}
			a.dirty = a.dirty || res.Committed
			return a.print(res.Value)
		},
	}
	cmd.Flags().Float64("by", 1, "amount to add")
	return cmd
}

func (a *app) logged() pathmut.MutationOptions[any, any] {
	return pathmut.MutationOptions[any, any]{
		OnError: func(err error, v any) {
			a.log.Debug("set rejected", zap.Error(err), zap.Any("value", v))
		},
	}
}

func (a *app) loggedPatch() pathmut.MutationOptions[pathmut.UpdatePatch, pathmut.UpdatePatch] {
	return pathmut.MutationOptions[pathmut.UpdatePatch, pathmut.UpdatePatch]{
		OnError: func(err error, p pathmut.UpdatePatch) {
			a.log.Debug("update rejected", zap.Error(err), zap.Int("keys", len(p)))
		},
	}
}

func (a *app) print(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

// parseValue reads arg as JSON, falling back to the raw string.
func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

func parsePriority(raw string) any {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
