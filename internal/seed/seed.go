package seed

import (
	"context"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log            *zap.Logger
	Counterparties counterpartydomain.Service
	Products       catalogdomain.Service
}

// Seeder loads a small demo book: two customers, one supplier and a
// handful of staples and drinks.
type Seeder struct {
	log            *zap.Logger
	counterparties counterpartydomain.Service
	products       catalogdomain.Service
}

type Result struct {
	Counterparties []counterpartydomain.Counterparty `json:"counterparties"`
	Products       []catalogdomain.Product           `json:"products"`
	Skipped        int                               `json:"skipped"`
}

type demoProduct struct {
	code     string
	name     string
	category string
	unit     string
	price    int64
}

var (
	demoCustomers = []counterpartydomain.CreateRequest{
		{Code: "warung-sari", Name: "Warung Sari", Kind: counterpartydomain.KindCustomer},
		{Code: "toko-makmur", Name: "Toko Makmur", Kind: counterpartydomain.KindCustomer},
	}
	demoSupplier = counterpartydomain.CreateRequest{
		Code: "cv-beras-jaya", Name: "CV Beras Jaya", Kind: counterpartydomain.KindSupplier,
	}
	demoProducts = []demoProduct{
		{code: "beras-5kg", name: "Beras 5kg", category: "staples", unit: "sack", price: 72000},
		{code: "gula-1kg", name: "Gula 1kg", category: "staples", unit: "pack", price: 15000},
		{code: "teh-botol", name: "Teh Botol", category: "drinks", unit: "bottle", price: 5000},
		{code: "kopi-sachet", name: "Kopi Sachet", category: "drinks", unit: "box", price: 22000},
	}
)

func New(p Params) *Seeder {
	return &Seeder{
		log:            p.Log.Named("seed"),
		counterparties: p.Counterparties,
		products:       p.Products,
	}
}

// Demo is safe to rerun: rows whose code already exists are skipped.
func (s *Seeder) Demo(ctx context.Context) (Result, error) {
	var res Result

	for _, req := range demoCustomers {
		cp, err := s.counterparties.Create(ctx, req)
		if errs.IsConflict(err) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Counterparties = append(res.Counterparties, cp)
	}

	supplierID := ""
	supplier, err := s.counterparties.Create(ctx, demoSupplier)
	switch {
	case errs.IsConflict(err):
		res.Skipped++
	case err != nil:
		return res, err
	default:
		res.Counterparties = append(res.Counterparties, supplier)
		supplierID = supplier.ID.String()
	}

	for _, p := range demoProducts {
		product, err := s.products.Create(ctx, catalogdomain.CreateRequest{
			Code:       p.code,
			Name:       p.name,
			Category:   p.category,
			SupplierID: supplierID,
			Unit:       p.unit,
			UnitPrice:  decimal.NewFromInt(p.price),
		})
		if errs.IsConflict(err) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Products = append(res.Products, product)
	}

	s.log.Info("demo data seeded",
		zap.Int("counterparties", len(res.Counterparties)),
		zap.Int("products", len(res.Products)),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
