package wastebankcentral

import (
	"context"

	"golang.org/x/sync/errgroup"

	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

// overviewWorkers caps concurrent per-unit aggregate queries.
const overviewWorkers = 4

// UnitCard is one waste bank's headline numbers.
type UnitCard struct {
	Unit     models.Unit
	Requests dropreq.Summary
	Stock    inventory.Stock
}

type Overview struct {
	Units     []UnitCard
	Requests  dropreq.Summary
	Transfers transfer.Summary
}

type Services struct {
	DB        *sqlite.DB
	Requests  *dropreq.Service
	Transfers *transfer.Service
	Inventory *inventory.Service
}

// LoadOverview aggregates every waste bank concurrently. Each card is written
// to its own slot so no locking is needed.
func LoadOverview(ctx context.Context, svc Services, actor models.Actor) (Overview, error) {
	var ov Overview
	units, err := orgunit.List(ctx, svc.DB, orgunit.KindWastebankCentral, orgunit.KindWastebankUnit)
	if err != nil {
		return ov, err
	}
	ov.Units = make([]UnitCard, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewWorkers)
	g.Go(func() error {
		var err error
		ov.Requests, err = svc.Requests.Summary(gctx, actor, dropreq.Filter{})
		return err
	})
	g.Go(func() error {
		var err error
		ov.Transfers, err = svc.Transfers.Summary(gctx, actor, listing.Query{})
		return err
	})
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			card := UnitCard{Unit: u}
			var err error
			if card.Requests, err = svc.Requests.Summary(gctx, actor, dropreq.Filter{Query: listing.Query{UnitID: u.ID}}); err != nil {
				return err
			}
			if card.Stock, err = svc.Inventory.Stock(gctx, actor, u.ID); err != nil {
				return err
			}
			ov.Units[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
