package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/fxgate/config"
	"github.com/vadiminshakov/fxgate/internal"
	"github.com/vadiminshakov/fxgate/internal/domain"
)

// runLatest fetches every base concurrently and prints them in argument order.
func runLatest(ctx context.Context, svc internal.RateService, bases []string, w io.Writer) error {
	results := make([]domain.ExchangeRate, len(bases))

	g, gctx := errgroup.WithContext(ctx)
	for i, base := range bases {
		i, base := i, base
		g.Go(func() error {
			rate, err := svc.GetLatestRate(gctx, base)
			if err != nil {
				return errors.Wrapf(err, "latest %s", strings.ToUpper(base))
			}
			results[i] = rate
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, rate := range results {
		fmt.Fprintln(w, renderLatest(rate))
	}

	return nil
}

func runConvert(ctx context.Context, svc internal.RateService, args []string, w io.Writer) error {
	from, to, rawAmount := args[0], args[1], args[2]

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("%w: amount %q is not a number", domain.ErrInvalidArgument, rawAmount)
	}

	converted, err := svc.Convert(ctx, from, to, amount)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, renderConversion(domain.NormalizeCurrency(from), domain.NormalizeCurrency(to), amount, converted))

	return nil
}

func runHistory(ctx context.Context, svc internal.RateService, args []string, w, errOut io.Writer) error {
	h, err := config.ParseHistoryArgs(args, errOut)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	start, err := domain.ParseDate(h.Start)
	if err != nil {
		return fmt.Errorf("%w: start date %q must be yyyy-mm-dd", domain.ErrInvalidArgument, h.Start)
	}
	end, err := domain.ParseDate(h.End)
	if err != nil {
		return fmt.Errorf("%w: end date %q must be yyyy-mm-dd", domain.ErrInvalidArgument, h.End)
	}

	history, err := svc.GetHistoricalRates(ctx, h.Base, start, end, h.Page, h.Size)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, renderHistory(domain.NormalizeCurrency(h.Base), h.Page, history))

	return nil
}
