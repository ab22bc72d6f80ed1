package utils

import "strings"

// AssetKey canonicalizes a B3 asset identifier so the same underlying asset
// is recognized across files. Input may be a bare ticker ("PETR4") or the
// "TICKER - Company Name" form used by movimentação exports. The key is the
// substring before the first " - ", uppercased, trimmed, with all digits
// stripped: this collapses fractional-market suffixes (PETR4F) and numeric
// share-class markers (ITSA3/ITSA4) onto one base key.
// Malformed input yields an empty or partial key; flagging that is the
// validator's job, not this function's.
func AssetKey(assetCode string) string {
	ticker, _, _ := strings.Cut(assetCode, " - ")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var b strings.Builder
	b.Grow(len(ticker))
	for _, r := range ticker {
		if r >= '0' && r <= '9' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
