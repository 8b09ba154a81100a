package ingest

import (
	"strconv"
	"strings"
	"time"
)

type categoryRow struct {
	ID          int
	Name        string
	Description *string
}

type customerRow struct {
	ID           string
	CompanyName  string
	ContactName  *string
	ContactTitle *string
	City         *string
	Country      *string
}

type employeeRow struct {
	ID      int
	Name    string
	Title   *string
	City    *string
	Country *string

	// ReportsTo is resolved against the loaded batch in a second pass.
	ReportsTo *int
}

type shipperRow struct {
	ID          int
	CompanyName string
}

type productRow struct {
	ID              int
	Name            string
	QuantityPerUnit *string
	UnitPrice       *float64
	Discontinued    bool
	CategoryID      *int
}

type orderRow struct {
	ID           int
	CustomerID   *string
	EmployeeID   *int
	OrderDate    *time.Time
	RequiredDate *time.Time
	ShippedDate  *time.Time
	ShipperID    *int
	Freight      *float64
}

type orderDetailRow struct {
	OrderID   int
	ProductID int
	UnitPrice float64
	Quantity  int
	Discount  float64
}

// parseCategories validates rows, skipping and counting ones without a usable
// primary key. Duplicate IDs keep the first occurrence.
func parseCategories(t *table) ([]categoryRow, int) {
	var rows []categoryRow
	errors := 0
	seen := make(map[int]bool)
	for _, raw := range t.rows {
		id, ok := parseIntCell(t.cell(raw, "categoryID"))
		if !ok || seen[id] {
			errors++
			continue
		}
		seen[id] = true
		rows = append(rows, categoryRow{
			ID:          id,
			Name:        deref(t.cell(raw, "categoryName")),
			Description: t.cell(raw, "description"),
		})
	}
	return rows, errors
}

func parseCustomers(t *table) ([]customerRow, int) {
	var rows []customerRow
	errors := 0
	seen := make(map[string]bool)
	for _, raw := range t.rows {
		id := t.cell(raw, "customerID")
		if id == nil || seen[*id] {
			errors++
			continue
		}
		seen[*id] = true
		rows = append(rows, customerRow{
			ID:           *id,
			CompanyName:  deref(t.cell(raw, "companyName")),
			ContactName:  t.cell(raw, "contactName"),
			ContactTitle: t.cell(raw, "contactTitle"),
			City:         t.cell(raw, "city"),
			Country:      t.cell(raw, "country"),
		})
	}
	return rows, errors
}

func parseEmployees(t *table) ([]employeeRow, int) {
	var rows []employeeRow
	errors := 0
	seen := make(map[int]bool)
	for _, raw := range t.rows {
		id, ok := parseIntCell(t.cell(raw, "employeeID"))
		if !ok || seen[id] {
			errors++
			continue
		}
		seen[id] = true
		row := employeeRow{
			ID:      id,
			Name:    deref(t.cell(raw, "employeeName")),
			Title:   t.cell(raw, "title"),
			City:    t.cell(raw, "city"),
			Country: t.cell(raw, "country"),
		}
		if managerID, ok := parseIntCell(t.cell(raw, "reportsTo")); ok {
			row.ReportsTo = &managerID
		}
		rows = append(rows, row)
	}
	return rows, errors
}

func parseShippers(t *table) ([]shipperRow, int) {
	var rows []shipperRow
	errors := 0
	seen := make(map[int]bool)
	for _, raw := range t.rows {
		id, ok := parseIntCell(t.cell(raw, "shipperID"))
		if !ok || seen[id] {
			errors++
			continue
		}
		seen[id] = true
		rows = append(rows, shipperRow{
			ID:          id,
			CompanyName: deref(t.cell(raw, "companyName")),
		})
	}
	return rows, errors
}

func parseProducts(t *table) ([]productRow, int) {
	var rows []productRow
	errors := 0
	seen := make(map[int]bool)
	for _, raw := range t.rows {
		id, ok := parseIntCell(t.cell(raw, "productID"))
		if !ok || seen[id] {
			errors++
			continue
		}
		seen[id] = true
		row := productRow{
			ID:              id,
			Name:            deref(t.cell(raw, "productName")),
			QuantityPerUnit: t.cell(raw, "quantityPerUnit"),
			Discontinued:    parseBoolFlag(t.cell(raw, "discontinued")),
		}
		if price, ok := parseFloatCell(t.cell(raw, "unitPrice")); ok {
			row.UnitPrice = &price
		}
		if catID, ok := parseIntCell(t.cell(raw, "categoryID")); ok {
			row.CategoryID = &catID
		}
		rows = append(rows, row)
	}
	return rows, errors
}

func parseOrders(t *table) ([]orderRow, int) {
	var rows []orderRow
	errors := 0
	seen := make(map[int]bool)
	for _, raw := range t.rows {
		id, ok := parseIntCell(t.cell(raw, "orderID"))
		if !ok || seen[id] {
			errors++
			continue
		}
		seen[id] = true
		row := orderRow{
			ID:           id,
			CustomerID:   t.cell(raw, "customerID"),
			OrderDate:    parseDateCell(t.cell(raw, "orderDate")),
			RequiredDate: parseDateCell(t.cell(raw, "requiredDate")),
			ShippedDate:  parseDateCell(t.cell(raw, "shippedDate")),
		}
		if empID, ok := parseIntCell(t.cell(raw, "employeeID")); ok {
			row.EmployeeID = &empID
		}
		if shipID, ok := parseIntCell(t.cell(raw, "shipperID")); ok {
			row.ShipperID = &shipID
		}
		if freight, ok := parseFloatCell(t.cell(raw, "freight")); ok {
			row.Freight = &freight
		}
		rows = append(rows, row)
	}
	return rows, errors
}

func parseOrderDetails(t *table) ([]orderDetailRow, int) {
	type key struct{ order, product int }
	var rows []orderDetailRow
	errors := 0
	seen := make(map[key]bool)
	for _, raw := range t.rows {
		orderID, okOrder := parseIntCell(t.cell(raw, "orderID"))
		productID, okProduct := parseIntCell(t.cell(raw, "productID"))
		if !okOrder || !okProduct {
			errors++
			continue
		}
		k := key{orderID, productID}
		if seen[k] {
			errors++
			continue
		}
		seen[k] = true
		row := orderDetailRow{OrderID: orderID, ProductID: productID}
		if price, ok := parseFloatCell(t.cell(raw, "unitPrice")); ok {
			row.UnitPrice = price
		}
		if qty, ok := parseIntCell(t.cell(raw, "quantity")); ok {
			row.Quantity = qty
		}
		if discount, ok := parseFloatCell(t.cell(raw, "discount")); ok {
			row.Discount = discount
		}
		rows = append(rows, row)
	}
	return rows, errors
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseIntCell(s *string) (int, bool) {
	if s == nil {
		return 0, false
	}
	v, err := strconv.Atoi(*s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFloatCell(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseBoolFlag(s *string) bool {
	if s == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
}

// parseDateCell returns nil for anything unparseable; a bad date degrades to
// NULL rather than dropping the row.
func parseDateCell(s *string) *time.Time {
	if s == nil {
		return nil
	}
	for _, layout := range dateLayouts {
		if v, err := time.Parse(layout, *s); err == nil {
			return &v
		}
	}
	return nil
}
