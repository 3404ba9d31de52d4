package gateway

// PayRequest — тело запроса на перевод средств.
type PayRequest struct {
	Payer            string `json:"payer"`
	Payee            string `json:"payee"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	PriceHint        int64  `json:"price_hint,omitempty"`
	ChargeFullAmount bool   `json:"charge_full_amount"`
	AllowFallback    bool   `json:"allow_fallback"`
}

// PayResponse — результат перевода от шлюза.
type PayResponse struct {
	Success      bool   `json:"success"`
	CurrencyUsed string `json:"currency_used"`
}
