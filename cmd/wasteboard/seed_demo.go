package main

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wasteboard/frontend/login"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

//go:embed fixtures.yaml
var demoFixtures []byte

type fixtures struct {
	Units []struct {
		Name    string `yaml:"name"`
		Kind    string `yaml:"kind"`
		Parent  string `yaml:"parent"`
		Address string `yaml:"address"`
	} `yaml:"units"`
	Catalog []struct {
		Category string `yaml:"category"`
		Types    []struct {
			Name           string `yaml:"name"`
			BasePricePerKg int64  `yaml:"base_price_per_kg"`
		} `yaml:"types"`
	} `yaml:"catalog"`
	Prices []struct {
		Unit       string `yaml:"unit"`
		Type       string `yaml:"type"`
		PricePerKg int64  `yaml:"price_per_kg"`
	} `yaml:"prices"`
	Users []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
		Unit     string `yaml:"unit"`
	} `yaml:"users"`
}

type seedResult struct {
	Units, Types, Users int
}

func parseFixtures(raw []byte) (fixtures, error) {
	var f fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

func seedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Load demo units, catalog and users; safe to run twice",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFixtures(demoFixtures)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := seedDemo(cmd.Context(), db, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "demo data ready: %d units, %d waste types, %d users\n", res.Units, res.Types, res.Users)
			return nil
		},
	}
}

// seedDemo creates whatever fixtures are missing. Existing units and types are
// matched by name and left alone; user passwords are reset.
func seedDemo(ctx context.Context, db *sqlite.DB, f fixtures) (seedResult, error) {
	var res seedResult
	seeder := models.Actor{Role: rbac.RoleAdmin}

	existing, err := orgunit.List(ctx, db)
	if err != nil {
		return res, err
	}
	unitIDs := make(map[string]int64, len(existing))
	for _, u := range existing {
		unitIDs[u.Name] = u.ID
	}
	for _, u := range f.Units {
		if _, ok := unitIDs[u.Name]; ok {
			continue
		}
		in := orgunit.CreateInput{Name: u.Name, Kind: u.Kind, Address: u.Address}
		if u.Parent != "" {
			parentID, ok := unitIDs[u.Parent]
			if !ok {
				return res, fmt.Errorf("unit %s: parent %s must be listed first", u.Name, u.Parent)
			}
			in.ParentID = &parentID
		}
		created, err := orgunit.Create(ctx, db, in)
		if err != nil {
			return res, fmt.Errorf("unit %s: %w", u.Name, err)
		}
		unitIDs[created.Name] = created.ID
		res.Units++
	}

	cat := catalog.New(db, nil)
	categories, err := cat.ListCategories(ctx)
	if err != nil {
		return res, err
	}
	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[c.Name] = c.ID
	}
	typeIDs := make(map[string]int64)
	known, err := cat.ListTypes(ctx, 0)
	if err != nil {
		return res, err
	}
	for _, t := range known {
		typeIDs[t.Name] = t.ID
	}
	for _, c := range f.Catalog {
		categoryID, ok := categoryIDs[c.Category]
		if !ok {
			created, err := cat.CreateCategory(ctx, seeder, c.Category)
			if err != nil {
				return res, fmt.Errorf("category %s: %w", c.Category, err)
			}
			categoryID = created.ID
			categoryIDs[c.Category] = categoryID
		}
		for _, t := range c.Types {
			if _, ok := typeIDs[t.Name]; ok {
				continue
			}
			wt, err := cat.CreateType(ctx, seeder, catalog.TypeInput{CategoryID: categoryID, Name: t.Name, BasePricePerKg: t.BasePricePerKg})
			if err != nil {
				return res, fmt.Errorf("waste type %s: %w", t.Name, err)
			}
			typeIDs[wt.Name] = wt.ID
			res.Types++
		}
	}

	for _, p := range f.Prices {
		unitID, okUnit := unitIDs[p.Unit]
		typeID, okType := typeIDs[p.Type]
		if !okUnit || !okType {
			return res, fmt.Errorf("price %s/%s: unknown unit or type", p.Unit, p.Type)
		}
		if err := cat.SetPrice(ctx, seeder, unitID, typeID, p.PricePerKg); err != nil {
			return res, fmt.Errorf("price %s/%s: %w", p.Unit, p.Type, err)
		}
	}

	for _, u := range f.Users {
		var unitID *int64
		if u.Unit != "" {
			id, ok := unitIDs[u.Unit]
			if !ok {
				return res, fmt.Errorf("user %s: unknown unit %s", u.Username, u.Unit)
			}
			unitID = &id
		}
		if err := login.UpsertUserPasswordHash(ctx, db, u.Username, u.Role, unitID, u.Password); err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		res.Users++
	}
	return res, nil
}
