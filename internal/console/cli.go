package console

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/angelmondragon/gourmet-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"github.com/angelmondragon/gourmet-cart/pkg/types"
	"github.com/spf13/cobra"
)

// Shortcut item added by the order command, one per restaurant.
const (
	SpecialName  = "Special Rice & Curry"
	SpecialPrice = types.Money(950)
)

// Session is a loaded engine plus whatever has to be released afterwards.
type Session struct {
	Engine   *cart.Engine
	Currency string
	Close    func() error
}

// Opener boots a session. The engine it returns must already be loaded.
type Opener func(ctx context.Context) (*Session, error)

// NewRootCommand builds the cart CLI on top of open.
func NewRootCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cart",
		Short:         "Inspect and edit the gourmet order cart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newShowCommand(open),
		newAddCommand(open),
		newOrderCommand(open),
		newQtyCommand(open),
		newRemoveCommand(open),
	)
	return cmd
}

func newShowCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart listing and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, open, func(_ context.Context, _ *Session, r *Renderer) error {
				r.Render()
				return nil
			})
		},
	}
}

func newAddCommand(open Opener) *cobra.Command {
	var trigger string
	cmd := &cobra.Command{
		Use:   "add <name> <price> <origin>",
		Short: "Add one unit of a dish",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "price must be an integer amount in minor units")
			}
			return withSession(cmd, open, func(ctx context.Context, s *Session, _ *Renderer) error {
				var opts []cart.AddOption
				if trigger != "" {
					opts = append(opts, cart.WithTrigger(trigger))
				}
				_, err := s.Engine.AddItem(ctx, args[0], types.Money(price), args[2], opts...)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "", "UI element reference echoed in the added notice")
	// Negative prices reach validation instead of the flag parser.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newOrderCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "order <restaurant>",
		Short: "Add the house special of a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *Session, _ *Renderer) error {
				_, err := s.Engine.AddItem(ctx, SpecialName, SpecialPrice, args[0])
				return err
			})
		},
	}
}

func newQtyCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qty <id> <delta>",
		Short: "Change the quantity of a line item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "delta must be an integer")
			}
			return withSession(cmd, open, func(ctx context.Context, s *Session, _ *Renderer) error {
				s.Engine.UpdateQuantity(ctx, args[0], delta)
				return nil
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newRemoveCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *Session, _ *Renderer) error {
				s.Engine.RemoveItem(ctx, args[0])
				return nil
			})
		},
	}
}

func withSession(cmd *cobra.Command, open Opener, fn func(context.Context, *Session, *Renderer) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx)
	if err != nil {
		return err
	}
	if s.Close != nil {
		defer func() {
			if closeErr := s.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
	}

	r := NewRenderer(s.Engine, cmd.OutOrStdout(), s.Currency)
	detach := r.Attach()
	defer detach()
	return fn(ctx, s, r)
}

// PrintError writes a user facing description of err.
func PrintError(w io.Writer, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	fmt.Fprintf(w, "error: %s: %s\n", meta.PublicMessage, typed.Message())
	if !meta.DetailsAllowed {
		return
	}
	if details, ok := typed.Details().(map[string]string); ok {
		for _, field := range slices.Sorted(maps.Keys(details)) {
			fmt.Fprintf(w, "  %s %s\n", field, details[field])
		}
	}
}
