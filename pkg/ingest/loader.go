// Package ingest loads the Northwind CSV files into PostgreSQL. Rows that
// fail validation are skipped and counted, never fatal; referential gaps are
// nulled out (or the missing parent synthesized) and reported.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// dbConn is the subset of pgxpool.Pool the loader needs. A bare *pgx.Conn
// satisfies it too; see pooledConn for how the two are told apart.
type dbConn interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// pooledConn marks pool-backed connections, which hand each COPY its own
// underlying connection. A bare connection multiplexes everything over one
// socket and is not safe for concurrent use, so the loader only parallelizes
// the parent copies when the connection is a pool.
type pooledConn interface {
	Stat() *pgxpool.Stat
}

// Config controls one load run.
type Config struct {
	CSVRoot string

	// CreateMissingParents synthesizes placeholder categories and customers
	// for dangling references instead of nulling them out.
	CreateMissingParents bool

	// Truncate deletes existing rows (children first) before loading, making
	// the run idempotent.
	Truncate bool
}

// Report summarizes one load run, keyed by table name.
type Report struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`

	Processed             map[string]int `json:"processed"`
	Inserted              map[string]int `json:"inserted"`
	Errors                map[string]int `json:"errors"`
	NullCounts            map[string]int `json:"null_counts"`
	ReferentialViolations map[string]int `json:"referential_violations"`
}

func newReport() *Report {
	return &Report{
		StartedAt:             time.Now().UTC(),
		Processed:             make(map[string]int),
		Inserted:              make(map[string]int),
		Errors:                make(map[string]int),
		NullCounts:            make(map[string]int),
		ReferentialViolations: make(map[string]int),
	}
}

// Loader runs the CSV normalization pipeline.
type Loader struct {
	db     dbConn
	cfg    Config
	logger *zap.Logger
}

// NewLoader creates a loader over the given connection.
func NewLoader(db dbConn, cfg Config, logger *zap.Logger) *Loader {
	return &Loader{db: db, cfg: cfg, logger: logger}
}

// Run reads, validates, and bulk-inserts all seven CSVs in FK order: the four
// independent parent tables load first (concurrently when the connection is a
// pool), then products, orders, and order details follow their parents.
func (l *Loader) Run(ctx context.Context) (*Report, error) {
	report := newReport()
	defer func() {
		report.FinishedAt = time.Now().UTC()
		report.DurationSeconds = report.FinishedAt.Sub(report.StartedAt).Seconds()
	}()

	tables := make(map[string]*table, len(csvFilenames))
	for name, filename := range csvFilenames {
		t, err := readTableFile(l.cfg.CSVRoot, filename)
		if err != nil {
			return report, err
		}
		tables[name] = t
		report.Processed[name] = len(t.rows)
		report.NullCounts[name] = t.nulls
	}

	categories, errs := parseCategories(tables["categories"])
	report.Errors["categories"] = errs
	customers, errs := parseCustomers(tables["customers"])
	report.Errors["customers"] = errs
	employees, errs := parseEmployees(tables["employees"])
	report.Errors["employees"] = errs
	shippers, errs := parseShippers(tables["shippers"])
	report.Errors["shippers"] = errs
	products, errs := parseProducts(tables["products"])
	report.Errors["products"] = errs
	orders, errs := parseOrders(tables["orders"])
	report.Errors["orders"] = errs
	orderDetails, errs := parseOrderDetails(tables["order_details"])
	report.Errors["order_details"] = errs

	categories, products = l.resolveProducts(categories, products, report)
	customers, orders = l.resolveOrders(customers, employees, shippers, orders, report)
	orderDetails = l.resolveOrderDetails(orders, products, orderDetails, report)
	managerUpdates := l.resolveManagers(employees, report)

	if l.cfg.Truncate {
		if err := l.truncate(ctx); err != nil {
			return report, err
		}
	}

	if err := l.copyParents(ctx, categories, customers, employees, shippers, report); err != nil {
		return report, err
	}

	for _, update := range managerUpdates {
		if _, err := l.db.Exec(ctx,
			`UPDATE employees SET "reportsTo" = $1 WHERE "employeeID" = $2`,
			update.managerID, update.employeeID); err != nil {
			return report, fmt.Errorf("failed to link employee %d to manager: %w", update.employeeID, err)
		}
	}

	nProducts, err := l.copyProducts(ctx, products)
	if err != nil {
		return report, err
	}
	report.Inserted["products"] = nProducts

	nOrders, err := l.copyOrders(ctx, orders)
	if err != nil {
		return report, err
	}
	report.Inserted["orders"] = nOrders

	nDetails, err := l.copyOrderDetails(ctx, orderDetails)
	if err != nil {
		return report, err
	}
	report.Inserted["order_details"] = nDetails

	l.logger.Info("CSV load complete",
		zap.Int("orders", report.Inserted["orders"]),
		zap.Int("order_details", report.Inserted["order_details"]),
		zap.Float64("duration_seconds", time.Since(report.StartedAt).Seconds()))

	return report, nil
}

// copyParents loads the four parent tables, which have no dependencies on
// each other. On a pool the copies run concurrently and counts land in the
// report only after the group finishes; a bare connection cannot carry more
// than one COPY at a time, so there the copies run one after another.
func (l *Loader) copyParents(ctx context.Context, categories []categoryRow, customers []customerRow, employees []employeeRow, shippers []shipperRow, report *Report) error {
	if _, pooled := l.db.(pooledConn); !pooled {
		var err error
		if report.Inserted["categories"], err = l.copyCategories(ctx, categories); err != nil {
			return err
		}
		if report.Inserted["customers"], err = l.copyCustomers(ctx, customers); err != nil {
			return err
		}
		if report.Inserted["employees"], err = l.copyEmployees(ctx, employees); err != nil {
			return err
		}
		if report.Inserted["shippers"], err = l.copyShippers(ctx, shippers); err != nil {
			return err
		}
		return nil
	}

	var nCategories, nCustomers, nEmployees, nShippers int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { nCategories, err = l.copyCategories(gctx, categories); return err })
	g.Go(func() (err error) { nCustomers, err = l.copyCustomers(gctx, customers); return err })
	g.Go(func() (err error) { nEmployees, err = l.copyEmployees(gctx, employees); return err })
	g.Go(func() (err error) { nShippers, err = l.copyShippers(gctx, shippers); return err })
	if err := g.Wait(); err != nil {
		return err
	}
	report.Inserted["categories"] = nCategories
	report.Inserted["customers"] = nCustomers
	report.Inserted["employees"] = nEmployees
	report.Inserted["shippers"] = nShippers
	return nil
}

// resolveProducts nulls or synthesizes dangling category references.
func (l *Loader) resolveProducts(categories []categoryRow, products []productRow, report *Report) ([]categoryRow, []productRow) {
	known := make(map[int]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}

	for i := range products {
		catID := products[i].CategoryID
		if catID == nil || known[*catID] {
			continue
		}
		if l.cfg.CreateMissingParents {
			categories = append(categories, categoryRow{ID: *catID, Name: fmt.Sprintf("Auto-%d", *catID)})
			known[*catID] = true
			continue
		}
		report.ReferentialViolations["products_category_missing"]++
		products[i].CategoryID = nil
	}
	return categories, products
}

// resolveOrders nulls dangling customer/employee/shipper references,
// synthesizing customers when configured.
func (l *Loader) resolveOrders(customers []customerRow, employees []employeeRow, shippers []shipperRow, orders []orderRow, report *Report) ([]customerRow, []orderRow) {
	knownCustomers := make(map[string]bool, len(customers))
	for _, c := range customers {
		knownCustomers[c.ID] = true
	}
	knownEmployees := make(map[int]bool, len(employees))
	for _, e := range employees {
		knownEmployees[e.ID] = true
	}
	knownShippers := make(map[int]bool, len(shippers))
	for _, s := range shippers {
		knownShippers[s.ID] = true
	}

	for i := range orders {
		if cid := orders[i].CustomerID; cid != nil && !knownCustomers[*cid] {
			if l.cfg.CreateMissingParents {
				customers = append(customers, customerRow{ID: *cid, CompanyName: "Auto-" + *cid})
				knownCustomers[*cid] = true
			} else {
				report.ReferentialViolations["orders_missing_refs"]++
				orders[i].CustomerID = nil
			}
		}
		if eid := orders[i].EmployeeID; eid != nil && !knownEmployees[*eid] {
			report.ReferentialViolations["orders_missing_refs"]++
			orders[i].EmployeeID = nil
		}
		if sid := orders[i].ShipperID; sid != nil && !knownShippers[*sid] {
			report.ReferentialViolations["orders_missing_refs"]++
			orders[i].ShipperID = nil
		}
	}
	return customers, orders
}

// resolveOrderDetails drops lines whose order or product is absent; a detail
// line has no meaning without both parents.
func (l *Loader) resolveOrderDetails(orders []orderRow, products []productRow, details []orderDetailRow, report *Report) []orderDetailRow {
	knownOrders := make(map[int]bool, len(orders))
	for _, o := range orders {
		knownOrders[o.ID] = true
	}
	knownProducts := make(map[int]bool, len(products))
	for _, p := range products {
		knownProducts[p.ID] = true
	}

	kept := details[:0]
	for _, d := range details {
		if !knownOrders[d.OrderID] || !knownProducts[d.ProductID] {
			report.ReferentialViolations["order_details_missing_refs"]++
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

type managerUpdate struct {
	employeeID int
	managerID  int
}

// resolveManagers plans the second-pass reportsTo updates. Employees are
// inserted with NULL reportsTo first so row order within the file never
// matters.
func (l *Loader) resolveManagers(employees []employeeRow, report *Report) []managerUpdate {
	known := make(map[int]bool, len(employees))
	for _, e := range employees {
		known[e.ID] = true
	}

	var updates []managerUpdate
	for _, e := range employees {
		if e.ReportsTo == nil {
			continue
		}
		if !known[*e.ReportsTo] {
			report.ReferentialViolations["employees_reportsTo_missing"]++
			continue
		}
		updates = append(updates, managerUpdate{employeeID: e.ID, managerID: *e.ReportsTo})
	}
	return updates
}

// truncate deletes existing rows children-first so FKs never block.
func (l *Loader) truncate(ctx context.Context) error {
	for _, tableName := range []string{
		"order_details", "orders", "products", "employees", "customers", "shippers", "categories",
	} {
		if _, err := l.db.Exec(ctx, "DELETE FROM "+tableName); err != nil {
			return fmt.Errorf("failed to clear %s: %w", tableName, err)
		}
	}
	return nil
}

func (l *Loader) copyCategories(ctx context.Context, rows []categoryRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"categories"},
		[]string{"categoryID", "categoryName", "description"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.Name, r.Description}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	return int(n), nil
}

func (l *Loader) copyCustomers(ctx context.Context, rows []customerRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"customers"},
		[]string{"customerID", "companyName", "contactName", "contactTitle", "city", "country"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.CompanyName, r.ContactName, r.ContactTitle, r.City, r.Country}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load customers: %w", err)
	}
	return int(n), nil
}

func (l *Loader) copyEmployees(ctx context.Context, rows []employeeRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"employees"},
		[]string{"employeeID", "employeeName", "title", "city", "country", "reportsTo"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.Name, r.Title, r.City, r.Country, nil}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load employees: %w", err)
	}
	return int(n), nil
}

func (l *Loader) copyShippers(ctx context.Context, rows []shipperRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"shippers"},
		[]string{"shipperID", "companyName"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.CompanyName}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load shippers: %w", err)
	}
	return int(n), nil
}

func (l *Loader) copyProducts(ctx context.Context, rows []productRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"products"},
		[]string{"productID", "productName", "quantityPerUnit", "unitPrice", "discontinued", "categoryID"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.Name, r.QuantityPerUnit, r.UnitPrice, r.Discontinued, r.CategoryID}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load products: %w", err)
	}
	return int(n), nil
}

func (l *Loader) copyOrders(ctx context.Context, rows []orderRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"orders"},
		[]string{"orderID", "customerID", "employeeID", "orderDate", "requiredDate", "shippedDate", "shipperID", "freight"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.CustomerID, r.EmployeeID, r.OrderDate, r.RequiredDate, r.ShippedDate, r.ShipperID, r.Freight}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load orders: %w", err)
	}
	return int(n), nil
}

func (l *Loader) copyOrderDetails(ctx context.Context, rows []orderDetailRow) (int, error) {
	n, err := l.db.CopyFrom(ctx, pgx.Identifier{"order_details"},
		[]string{"orderID", "productID", "unitPrice", "quantity", "discount"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.OrderID, r.ProductID, r.UnitPrice, r.Quantity, r.Discount}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to load order details: %w", err)
	}
	return int(n), nil
}
