package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/documents"
	"github.com/manigandan-posana/vebops/internal/lineitem"
	"github.com/manigandan-posana/vebops/internal/totals"
)

// totals computes a document breakdown from a JSON request and prints it.
// Exit code 0 = ok, 1 = breakdown failed verification, 2 = other error.
func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("totals", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in       = fs.String("in", "-", "JSON request file, - for stdin")
		seller   = fs.String("seller", "", "seller state; overrides sellerState in the request")
		buyer    = fs.String("buyer", "", "buyer state; overrides buyerState in the request")
		rounding = fs.String("rounding", "", "rounding mode: paise or rupee")
		rate     = fs.String("rate", "", "nominal GST rate in percent")
		words    = fs.String("words", "", "print the amount in words for this value and exit")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *words != "" {
		amount, err := decimal.NewFromString(strings.TrimSpace(*words))
		if err != nil {
			fmt.Fprintf(stderr, "totals: invalid amount %q\n", *words)
			return 2
		}
		fmt.Fprintln(stdout, totals.AmountInWords(amount))
		return 0
	}

	req, err := readRequest(*in, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "totals: %v\n", err)
		return 2
	}
	if *seller != "" {
		req.SellerState = *seller
	}
	if *buyer != "" {
		req.BuyerState = *buyer
	}
	if *rounding != "" {
		if req.Rounding, err = totals.ParseRounding(*rounding); err != nil {
			fmt.Fprintf(stderr, "totals: %v\n", err)
			return 2
		}
	}
	if *rate != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*rate))
		if err != nil {
			fmt.Fprintf(stderr, "totals: invalid rate %q\n", *rate)
			return 2
		}
		n := lineitem.NewNumber(parsed)
		req.GSTRate = &n
	}
	if err := documents.NewValidator().Struct(req); err != nil {
		fmt.Fprintf(stderr, "totals: invalid request: %v\n", err)
		return 2
	}

	res, err := documents.Compute(req)
	if err != nil {
		fmt.Fprintf(stderr, "totals: %v\n", err)
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code == "TOTALS_UNRECONCILED" {
			return 1
		}
		return 2
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(stderr, "totals: %v\n", err)
		return 2
	}
	return 0
}

func readRequest(path string, stdin io.Reader) (documents.ComputeRequest, error) {
	var req documents.ComputeRequest
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}
