package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const request = `{
	"sellerState": "Tamil Nadu",
	"buyerState": "Karnataka",
	"items": [{"description": "Panel", "quantity": 2, "unitRate": 1000, "discountPercent": 10}],
	"transport": 500
}`

func TestRunPrintsBreakdown(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(nil, strings.NewReader(request), &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	var res struct {
		Totals struct {
			Regime     string  `json:"regime"`
			IGST       float64 `json:"igst"`
			GrandTotal float64 `json:"grandTotal"`
		} `json:"totals"`
		AmountInWords string `json:"amountInWords"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Equal(t, "inter_state", res.Totals.Regime)
	require.Equal(t, 414.0, res.Totals.IGST)
	require.Equal(t, 2714.0, res.Totals.GrandTotal)
	require.Equal(t, "Two Thousand Seven Hundred Fourteen Rupees Only", res.AmountInWords)
}

func TestRunFlagsOverrideRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(request), 0o600))

	var out, errOut bytes.Buffer
	code := run([]string{"-in", path, "-seller", "karnataka", "-rate", "12"}, nil, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	require.Contains(t, out.String(), `"regime": "intra_state"`)
	require.Contains(t, out.String(), `"cgstRate": 6`)
}

func TestRunWords(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 0, run([]string{"-words", "1500.50"}, nil, &out, &errOut))
	require.Equal(t, "One Thousand Five Hundred Rupees and Fifty Paise Only\n", out.String())
}

func TestRunRejectsBadInput(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 2, run(nil, strings.NewReader(`{"items": []}`), &out, &errOut))
	require.Contains(t, errOut.String(), "invalid request")

	errOut.Reset()
	require.Equal(t, 2, run([]string{"-rounding", "nickel"}, strings.NewReader(request), &out, &errOut))
}
