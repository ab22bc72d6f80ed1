package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/declarab3/src/logger"
)

// staticTickerInfo is the built-in ticker registry. CNPJ digits only.
// Static and manually maintained; the HTTP lookup covers the rest.
var staticTickerInfo = map[string]TickerInfo{
	"PETR4":  {Ticker: "PETR4", CompanyName: "PETROLEO BRASILEIRO S.A. PETROBRAS", CNPJ: "33000167000101"},
	"PETR3":  {Ticker: "PETR3", CompanyName: "PETROLEO BRASILEIRO S.A. PETROBRAS", CNPJ: "33000167000101"},
	"VALE3":  {Ticker: "VALE3", CompanyName: "VALE S.A.", CNPJ: "33592510000154"},
	"ITSA4":  {Ticker: "ITSA4", CompanyName: "ITAUSA S.A.", CNPJ: "61532644000115"},
	"ITSA3":  {Ticker: "ITSA3", CompanyName: "ITAUSA S.A.", CNPJ: "61532644000115"},
	"ITUB4":  {Ticker: "ITUB4", CompanyName: "ITAU UNIBANCO HOLDING S.A.", CNPJ: "60872504000123"},
	"WEGE3":  {Ticker: "WEGE3", CompanyName: "WEG S.A.", CNPJ: "84429695000111"},
	"BBAS3":  {Ticker: "BBAS3", CompanyName: "BANCO DO BRASIL S.A.", CNPJ: "00000000000191"},
	"BBDC4":  {Ticker: "BBDC4", CompanyName: "BANCO BRADESCO S.A.", CNPJ: "60746948000112"},
	"MXRF11": {Ticker: "MXRF11", CompanyName: "MAXI RENDA FDO INV IMOB", CNPJ: "97521225000125"},
	"HFOF11": {Ticker: "HFOF11", CompanyName: "HEDGE TOP FOFII 3 FDO INV IMOB", CNPJ: "18307582000119"},
	"VISC11": {Ticker: "VISC11", CompanyName: "VINCI SHOPPING CENTERS FDO INV IMOB", CNPJ: "17554274000125"},
	"BCFF11": {Ticker: "BCFF11", CompanyName: "FDO INV IMOB BTG PACTUAL FUNDO DE FUNDOS", CNPJ: "11026627000138"},
}

// tickerInfoService resolves ticker to company name and CNPJ: built-in table
// first, then an optional BrasilAPI-shaped HTTP endpoint. Hits and misses are
// both cached so a ticker is asked upstream at most once per cache window.
type tickerInfoService struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	limiter    *rate.Limiter
}

// NewTickerInfoService builds the resolver. baseURL may be empty, in which
// case only the static table is consulted.
func NewTickerInfoService(baseURL string, timeout time.Duration) TickerInfoService {
	return &tickerInfoService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(12*time.Hour, 1*time.Hour),
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
	}
}

type brasilAPIStockResponse struct {
	CNPJ     string `json:"cnpj"`
	Name     string `json:"name"`
	LongName string `json:"longName"`
}

func (s *tickerInfoService) Lookup(ctx context.Context, ticker string) (*TickerInfo, error) {
	upper := strings.ToUpper(strings.TrimSpace(ticker))
	if upper == "" {
		return nil, nil
	}

	if info, ok := staticTickerInfo[upper]; ok {
		return &info, nil
	}

	if cached, found := s.cache.Get(upper); found {
		if cached == nil {
			return nil, nil
		}
		info := cached.(TickerInfo)
		return &info, nil
	}

	if s.baseURL == "" {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	info, err := s.fetchStockInfo(ctx, upper)
	if err != nil {
		logger.L.Warn("consulta de ticker falhou", "ticker", upper, "error", err)
		s.cache.Set(upper, nil, cache.DefaultExpiration)
		return nil, nil
	}
	if info == nil {
		s.cache.Set(upper, nil, cache.DefaultExpiration)
		return nil, nil
	}

	s.cache.Set(upper, *info, cache.DefaultExpiration)
	return info, nil
}

func (s *tickerInfoService) fetchStockInfo(ctx context.Context, ticker string) (*TickerInfo, error) {
	url := fmt.Sprintf("%s/stocks/v1/%s", s.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building ticker request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ticker info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker API returned status %d", resp.StatusCode)
	}

	var payload brasilAPIStockResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding ticker response: %w", err)
	}
	if payload.CNPJ == "" {
		return nil, nil
	}

	name := payload.Name
	if name == "" {
		name = payload.LongName
	}
	if name == "" {
		name = ticker
	}

	return &TickerInfo{
		Ticker:      ticker,
		CompanyName: name,
		CNPJ:        onlyDigits(payload.CNPJ),
	}, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
