package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/lotledger/internal/importer"
)

func TestParseCSV(t *testing.T) {
	sheet := "\ufeffLot Number,reference_code,Quantity,expiry_date,sale_price,vat_rate,unused\n" +
		"L-1,REF-1,12,2027-03-01,\"12,50\",20,x\n" +
		",,,,,,\n" +
		"L-2,REF-1,0,01.02.2028,,,\n"

	rows, err := importer.Parse("stock.CSV", strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, 2, rows[0].Line)
	require.Equal(t, "REF-1", rows[0].ReferenceCode)
	require.Equal(t, "L-1", rows[0].LotNumber)
	require.Equal(t, int64(12), rows[0].Quantity)
	require.Equal(t, "2027-03-01", rows[0].ExpiryDate.Format("2006-01-02"))
	require.Equal(t, "12.5", rows[0].SalePrice.String())
	require.Equal(t, "20", rows[0].VatRate.String())
	require.Nil(t, rows[0].PurchasePrice)

	require.Equal(t, 4, rows[1].Line)
	require.Equal(t, "2028-02-01", rows[1].ExpiryDate.Format("2006-01-02"))
	require.Nil(t, rows[1].SalePrice)
}

func TestParseXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]any{"reference_code", "lot_number", "quantity", "barcode", "product_name"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]any{"REF-9", "B7", 40, "8690000000001", "Abutment"}))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, book.Close())

	rows, err := importer.Parse("upload.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "REF-9", rows[0].ReferenceCode)
	require.Equal(t, int64(40), rows[0].Quantity)
	require.Equal(t, "8690000000001", rows[0].Barcode)
	require.Equal(t, "Abutment", rows[0].ProductName)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		filename string
		body     string
		want     error
	}{
		"unsupported extension": {"stock.txt", "reference_code,lot_number,quantity\n", importer.ErrUnsupportedFormat},
		"empty":                 {"stock.csv", "", importer.ErrEmptySheet},
		"missing column":        {"stock.csv", "reference_code,quantity\nREF,1\n", importer.ErrMissingColumn},
		"negative quantity":     {"stock.csv", "reference_code,lot_number,quantity\nREF,L,-1\n", importer.ErrInvalidCell},
		"bad date":              {"stock.csv", "reference_code,lot_number,quantity,expiry_date\nREF,L,1,soon\n", importer.ErrInvalidCell},
		"missing lot":           {"stock.csv", "reference_code,lot_number,quantity\nREF,,1\n", importer.ErrInvalidCell},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := importer.Parse(tc.filename, strings.NewReader(tc.body))
			require.ErrorIs(t, err, tc.want)
		})
	}
}
