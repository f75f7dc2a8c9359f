package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// ErrCodeGeneration indicates the gateway could not produce a transfer code.
// Terminal for the QR flow; the operator falls back to cash.
var ErrCodeGeneration = errors.New("payment: transfer code generation failed")

// Config holds gateway endpoints and the receiving bank account.
type Config struct {
	APIURL        string
	APIToken      string
	QRURL         string
	AccountNumber string
	AccountName   string
	BankName      string
	AcquirerID    string
	ContentPrefix string
}

// Code is a scannable bank-transfer request for one payment.
type Code struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	QRPayload     string `json:"qr_payload"`
	QRPNG         []byte `json:"qr_png"` // serialized as base64 by encoding/json
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// Transaction is a settled bank transfer reported by the gateway.
type Transaction struct {
	ID        string `json:"id"`
	Content   string `json:"transaction_content"`
	AmountIn  string `json:"amount_in"`
	Reference string `json:"reference_number"`
	Date      string `json:"transaction_date"`
}

// Gateway talks to the payment provider: one endpoint generates transfer QR
// payloads, another lists incoming transactions for settlement checks.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewGateway returns a gateway client.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Description builds the transfer note the payer's bank will echo back; the
// order id inside it is how settlements are matched.
func (g *Gateway) Description(orderID string) string {
	if g.cfg.ContentPrefix == "" {
		return orderID
	}
	return g.cfg.ContentPrefix + " " + orderID
}

type qrRequest struct {
	AccountNo   string `json:"accountNo"`
	AccountName string `json:"accountName"`
	AcqID       string `json:"acqId"`
	Amount      int64  `json:"amount"`
	AddInfo     string `json:"addInfo"`
	Format      string `json:"format"`
	Template    string `json:"template"`
}

type qrResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		QRCode string `json:"qrCode"`
	} `json:"data"`
}

// CreateCode requests a transfer QR payload for the amount and renders it to
// PNG locally.
func (g *Gateway) CreateCode(ctx context.Context, amount int64, orderID string) (*Code, error) {
	description := g.Description(orderID)

	body, err := json.Marshal(qrRequest{
		AccountNo:   g.cfg.AccountNumber,
		AccountName: g.cfg.AccountName,
		AcqID:       g.cfg.AcquirerID,
		Amount:      amount,
		AddInfo:     description,
		Format:      "text",
		Template:    "compact",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.QRURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("qr service request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("qr service returned non-success", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrCodeGeneration, resp.StatusCode)
	}

	var decoded qrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}
	if decoded.Code != "00" || decoded.Data.QRCode == "" {
		return nil, fmt.Errorf("%w: provider code %s", ErrCodeGeneration, decoded.Code)
	}

	png, err := qrcode.Encode(decoded.Data.QRCode, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("%w: render png: %v", ErrCodeGeneration, err)
	}

	return &Code{
		OrderID:       orderID,
		Amount:        amount,
		Description:   description,
		QRPayload:     decoded.Data.QRCode,
		QRPNG:         png,
		BankName:      g.cfg.BankName,
		AccountNumber: g.cfg.AccountNumber,
		AccountName:   g.cfg.AccountName,
	}, nil
}

type transactionsResponse struct {
	Status       int           `json:"status"`
	Transactions []Transaction `json:"transactions"`
}

// CheckSettlement asks the gateway for recent incoming transfers and returns
// the one whose content contains the order description, or nil when no match
// has landed yet.
func (g *Gateway) CheckSettlement(ctx context.Context, amount int64, orderID string) (*Transaction, error) {
	endpoint := strings.TrimRight(g.cfg.APIURL, "/") + "/transactions/list"

	params := url.Values{}
	params.Set("limit", "10")
	params.Set("amount_in", strconv.FormatInt(amount, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: settlement check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment: settlement check status %d", resp.StatusCode)
	}

	var decoded transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("payment: decode transactions: %w", err)
	}

	needle := strings.ToUpper(g.Description(orderID))
	for i := range decoded.Transactions {
		tx := decoded.Transactions[i]
		if strings.Contains(strings.ToUpper(tx.Content), needle) {
			g.logger.Info("settlement matched",
				zap.String("order_id", orderID),
				zap.String("transaction_id", tx.ID))
			return &tx, nil
		}
	}
	return nil, nil
}
