// Package reporting renders read-only views of orders as CSV and charts.
// It never mutates market state.
package reporting

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cafeya/cafeya-orders/internal/market"
)

// WriteCustomerOrdersCSV writes a customer's order history. Column layout
// matches the export customers already download.
func WriteCustomerOrdersCSV(w io.Writer, rows []market.CustomerOrderRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Cliente", "Producto", "Cantidad", "Precio Unitario", "Estado", "Horario Retiro", "Cafeteria"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Customer,
			r.Product,
			strconv.Itoa(r.Quantity),
			r.UnitPrice.String(),
			string(r.State),
			r.PickupTime,
			r.Vendor,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVendorSalesCSV writes a vendor's sales, adding a line total computed
// from the snapshot price so historical rows survive price changes.
func WriteVendorSalesCSV(w io.Writer, rows []market.VendorOrderRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Producto", "Cantidad Vendida", "Precio Unitario", "Precio Total", "Estado Pedido", "Horario Retiro", "Cliente"}); err != nil {
		return err
	}
	for _, r := range rows {
		total := r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
		rec := []string{
			r.Product,
			strconv.Itoa(r.Quantity),
			r.UnitPrice.String(),
			total.String(),
			string(r.State),
			r.PickupTime,
			r.Customer,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
