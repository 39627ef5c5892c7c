package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"github.com/storefront/cart/internal/app"
	cartapp "github.com/storefront/cart/internal/application/cart"
	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/domain/shared"
	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/storefront/cart/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one cart command and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		logLevel  string
		logOutput string
		sessionID string
	)

	flags := pflag.NewFlagSet("cart", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides CART_LOG_LEVEL")
	flags.StringVar(&logOutput, "log-output", "stderr", "Log destination (stdout, stderr or a file path)")
	flags.StringVar(&sessionID, "session", "", "Session id attached to every log entry")
	flags.Usage = func() { printUsage(stderr, flags) }
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printUsage(stderr, flags)
		return exitUsage
	}

	cmd, err := parseCommand(flags.Args())
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n\n", err)
		}
		printUsage(stderr, flags)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	cfg.Log.Output = logOutput

	log, lp, err := app.NewLogger(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer func() {
		_ = logger.Sync(log)
		_ = lp.Shutdown(context.WithoutCancel(ctx))
	}()

	if sessionID != "" {
		ctx = logger.WithSessionID(ctx, sessionID)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start cart", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Cart shutdown incomplete", zap.Error(err))
		}
	}()

	log.Debug("Cart command", zap.String("command", cmd.name))
	if err := cmd.exec(ctx, a, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describe(err))
		return exitError
	}
	return exitOK
}

type command struct {
	name string
	exec func(ctx context.Context, a *app.App, out io.Writer) error
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errUsage
	}
	name, rest := args[0], args[1:]

	switch name {
	case "show":
		return command{name: name, exec: func(_ context.Context, a *app.App, out io.Writer) error {
			return printCart(out, a.Store.Cart())
		}}, nil

	case "products":
		return command{name: name, exec: listProducts}, nil

	case "add", "remove":
		if len(rest) != 1 {
			return command{}, fmt.Errorf("%s requires a product id", name)
		}
		productID, err := parseProductID(rest[0])
		if err != nil {
			return command{}, err
		}
		return command{name: name, exec: func(ctx context.Context, a *app.App, out io.Writer) error {
			op := a.Store.AddProduct
			if name == "remove" {
				op = a.Store.RemoveProduct
			}
			if err := op(ctx, productID); err != nil {
				return err
			}
			return printCart(out, a.Store.Cart())
		}}, nil

	case "update":
		if len(rest) != 2 {
			return command{}, fmt.Errorf("update requires a product id and an amount")
		}
		productID, err := parseProductID(rest[0])
		if err != nil {
			return command{}, err
		}
		amount, err := strconv.Atoi(rest[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid amount %q", rest[1])
		}
		return command{name: name, exec: func(ctx context.Context, a *app.App, out io.Writer) error {
			req := cartapp.UpdateProductAmount{ProductID: productID, Amount: amount}
			if err := a.Store.UpdateProductAmount(ctx, req); err != nil {
				return err
			}
			return printCart(out, a.Store.Cart())
		}}, nil
	}

	return command{}, fmt.Errorf("unknown command %q", name)
}

func parseProductID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

// describe prefers the shopper-facing message of a domain error
func describe(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

func listProducts(ctx context.Context, a *app.App, out io.Writer) error {
	products, err := a.Catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	inCart := a.Store.Cart().AmountByProduct()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tIN CART")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Title, p.Price.StringFixed(2), inCart[p.ID])
	}
	return w.Flush()
}

func printCart(out io.Writer, c cart.Cart) error {
	if c.IsEmpty() {
		_, err := fmt.Fprintln(out, "Cart is empty")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tAMOUNT\tSUBTOTAL")
	for _, item := range c.Items() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			item.ProductID, item.Title, item.Price.StringFixed(2), item.Amount, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t\t%d\t%s\n", c.TotalUnits(), c.Total().StringFixed(2))
	return w.Flush()
}

func printUsage(out io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(out, `Storefront cart CLI

Usage:
  cart [flags] <command> [arguments]

Commands:
  show                        Print the persisted cart
  products                    List catalog products with the amount held in the cart
  add <product-id>            Add one unit of a product
  remove <product-id>         Remove a product from the cart
  update <product-id> <n>     Set the amount of a product already in the cart

Configuration is read from config.toml and CART_* environment variables,
e.g. CART_CATALOG_BASE_URL, CART_STORAGE_DRIVER, CART_DATABASE_SQLITE_PATH.

Flags:`)
	fmt.Fprint(out, flags.FlagUsages())
}
