package commands

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/segyhp/movie-rental/internal/app"
	"github.com/segyhp/movie-rental/internal/config"
	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/handler"
)

// rentalAPI is what the rental commands need, served either by a local store
// or by a running server over gRPC.
type rentalAPI interface {
	Rent(ctx context.Context, movieID, userID int64) (*domain.Rental, error)
	Return(ctx context.Context, rentalID int64) (*domain.Rental, error)
	ListOverdue(ctx context.Context) ([]domain.RentalView, error)
}

type options struct {
	grpcAddr string
	timeout  time.Duration
}

// NewRootCmd builds the rentalctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "rentalctl",
		Short: "rentalctl - movie rental administration",
		Long: `rentalctl rents and returns movies, lists overdue rentals and seeds a store.

Commands work against the store configured through the environment (STORE_BACKEND,
DATABASE_URL, REDIS_ADDR, ...) unless --grpc-addr points them at a running server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			figure.NewFigure("rentalctl", "", true).Print()
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.grpcAddr, "grpc-addr", "", "Address of a running rental server (host:port)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for each command")

	root.AddCommand(
		newRentCmd(opts),
		newReturnCmd(opts),
		newOverdueCmd(opts),
		newSeedCmd(opts),
	)

	return root
}

// connect returns the rental API the flags select and a function releasing it.
func (o *options) connect(ctx context.Context) (rentalAPI, func(), error) {
	if o.grpcAddr != "" {
		conn, err := grpc.NewClient(o.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, err
		}
		return handler.NewRentalServiceClient(conn), func() { _ = conn.Close() }, nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &localAPI{app: a}, func() { _ = a.Close() }, nil
}

func (o *options) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Commands print their own results; store warnings go to stderr.
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "text"
	return app.New(ctx, cfg, cfg.NewLogger(os.Stderr))
}

type localAPI struct {
	app *app.App
}

func (l *localAPI) Rent(ctx context.Context, movieID, userID int64) (*domain.Rental, error) {
	return l.app.Ledger.Rent(ctx, movieID, userID, time.Now().UTC())
}

func (l *localAPI) Return(ctx context.Context, rentalID int64) (*domain.Rental, error) {
	return l.app.Ledger.ReturnRental(ctx, rentalID, time.Now().UTC())
}

func (l *localAPI) ListOverdue(ctx context.Context) ([]domain.RentalView, error) {
	seq, err := l.app.Ledger.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}
