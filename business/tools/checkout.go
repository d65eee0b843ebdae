package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/superfeelapi/goVoiceAgent/business/ledger"
	"github.com/superfeelapi/goVoiceAgent/business/otp"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/inventory"
	"go.uber.org/zap"
)

// Codes issues and verifies one-time codes.
type Codes interface {
	Issue(ctx context.Context, address string) (code string, delivered bool, err error)
	Verify(address, code string) error
}

// Notifier sends the order confirmation. Failures never undo an order.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o ledger.Order) error
}

type CheckoutConfig struct {
	Ledger   *ledger.Ledger
	Codes    Codes
	Notifier Notifier
	Catalog  func() (inventory.Catalog, error)
	IDs      func() (orderID string, trackingID string)
	Now      func() time.Time
	Logger   *zap.SugaredLogger
}

type checkoutData struct {
	CustomerName string `json:"customer_name"`
	Product      string `json:"product"`
	Email        string `json:"email"`
	ScriptStage  string `json:"script_stage"`
	Summary      string `json:"summary"`
}

type lookupArgs struct {
	Category string `json:"category"`
}

type sendOtpArgs struct {
	Email string `json:"email"`
}

type verifyOtpArgs struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type orderArgs struct {
	CustomerName string `json:"customer_name"`
	Product      string `json:"product"`
	Email        string `json:"email"`
}

// Checkout returns the tool set of the voice shop.
func Checkout(cfg CheckoutConfig) []*Tool {
	if cfg.IDs == nil {
		cfg.IDs = NewOrderIDs
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	c := checkout{cfg}

	return []*Tool{
		{
			Name:        CollectData,
			Description: "Call this tool whenever you learn the customer's name, chosen product or email. When the call is complete and you've said goodbye, call this with summary to finalize the call.",
			Parameters: objectSchema(map[string]any{
				"customer_name": stringProp("The customer's name once confirmed"),
				"product":       stringProp("The product the customer chose"),
				"email":         stringProp("The customer's email address"),
				"script_stage":  stringProp("Current stage of the conversation", "greeting", "browsing", "verification", "ordering", "closing"),
				"summary":       stringProp("Final summary of the call (only provide when call is complete and you've said goodbye)"),
			}),
			Handler: c.collectData,
		},
		{
			Name:        "lookup_products",
			Description: "Look up the products available in a category.",
			Parameters: objectSchema(map[string]any{
				"category": stringProp("Product category, for example shirts or shoes"),
			}, "category"),
			Handler: c.lookupProducts,
		},
		{
			Name:        "send_otp",
			Description: "Send a 6-digit verification code to the customer's email address.",
			Parameters: objectSchema(map[string]any{
				"email": stringProp("The customer's email address"),
			}, "email"),
			Handler: c.sendOtp,
		},
		{
			Name:        "verify_otp",
			Description: "Verify the code the customer read back.",
			Parameters: objectSchema(map[string]any{
				"email": stringProp("The email address the code was sent to"),
				"code":  stringProp("The 6-digit code spoken by the customer"),
			}, "email", "code"),
			Handler: c.verifyOtp,
		},
		{
			Name:        "generate_order",
			Description: "Place the order once the customer's email is verified.",
			Parameters: objectSchema(map[string]any{
				"customer_name": stringProp("The customer's name"),
				"product":       stringProp("The product being ordered"),
				"email":         stringProp("The verified email address"),
			}),
			Handler: c.generateOrder,
		},
	}
}

type checkout struct {
	CheckoutConfig
}

func (c checkout) collectData(_ context.Context, raw json.RawMessage) (Result, error) {
	var args checkoutData
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}

	c.Ledger.Update(ledger.CustomerName, args.CustomerName)
	c.Ledger.Update(ledger.Product, args.Product)
	c.Ledger.Update(ledger.Email, args.Email)
	c.Ledger.Update(ledger.ScriptStage, args.ScriptStage)

	if strings.TrimSpace(args.Summary) != "" {
		c.Ledger.Update(ledger.Summary, args.Summary)
		return Result{Finalize: true}, nil
	}

	return Result{Output: "Data collected successfully"}, nil
}

func (c checkout) lookupProducts(_ context.Context, raw json.RawMessage) (Result, error) {
	var args lookupArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	if err := required("category", args.Category); err != nil {
		return Result{}, err
	}

	catalog, err := c.Catalog()
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return Result{Output: "The product inventory is not available right now."}, nil
		}
		return Result{}, err
	}

	products, err := catalog.Lookup(args.Category)
	if err != nil {
		return Result{Output: fmt.Sprintf("No products found in category %q. Available categories: %s.", args.Category, strings.Join(catalog.Categories(), ", "))}, nil
	}

	return Result{Output: inventory.Describe(products)}, nil
}

func (c checkout) sendOtp(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args sendOtpArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	address, err := parseEmail(args.Email)
	if err != nil {
		return Result{}, err
	}

	_, delivered, err := c.Codes.Issue(ctx, address)
	if err != nil {
		return Result{}, err
	}
	c.Ledger.Update(ledger.Email, address)

	if !delivered {
		return Result{Output: fmt.Sprintf("A verification code was issued for %s but the email could not be sent. Ask the customer to check again shortly.", address)}, nil
	}
	return Result{Output: fmt.Sprintf("Verification code sent to %s.", address)}, nil
}

func (c checkout) verifyOtp(_ context.Context, raw json.RawMessage) (Result, error) {
	var args verifyOtpArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	if err := required("email", args.Email, "code", args.Code); err != nil {
		return Result{}, err
	}
	address, err := parseEmail(args.Email)
	if err != nil {
		return Result{}, err
	}
	code := strings.Join(strings.Fields(args.Code), "")

	switch err := c.Codes.Verify(address, code); {
	case errors.Is(err, otp.ErrNotFound):
		return Result{Output: fmt.Sprintf("No verification code is pending for %s. Send a new code first.", address)}, nil
	case errors.Is(err, otp.ErrMismatch):
		return Result{Output: "The code does not match. Ask the customer to read it again."}, nil
	case err != nil:
		return Result{}, err
	}

	c.Ledger.MarkVerified(address)
	c.Ledger.Update(ledger.Email, address)
	return Result{Output: "Verification successful."}, nil
}

func (c checkout) generateOrder(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args orderArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}

	name := c.fallback(args.CustomerName, ledger.CustomerName)
	product := c.fallback(args.Product, ledger.Product)
	email := c.fallback(args.Email, ledger.Email)
	if err := required("customer_name", name, "product", product, "email", email); err != nil {
		return Result{}, err
	}
	address, err := parseEmail(email)
	if err != nil {
		return Result{}, err
	}
	if !c.Ledger.Verified(address) {
		return Result{}, fmt.Errorf("email %s has not been verified", address)
	}
	if product, err = c.catalogName(product); err != nil {
		return Result{}, err
	}

	c.Ledger.Update(ledger.CustomerName, name)
	c.Ledger.Update(ledger.Product, product)

	orderID, trackingID := c.IDs()
	order := ledger.Order{
		Timestamp:    c.Now(),
		CustomerName: name,
		Product:      product,
		Email:        address,
		OrderID:      orderID,
		TrackingID:   trackingID,
		Summary:      fmt.Sprintf("Order placed for %s", product),
	}
	if err := c.Ledger.RecordOrder(order); err != nil {
		return Result{}, err
	}

	if c.Notifier != nil {
		if err := c.Notifier.SendOrderConfirmation(ctx, order); err != nil {
			c.Logger.Warnw("tools: generate_order: confirmation not sent", "orderID", orderID, "ERROR", err)
		}
	}

	return Result{Output: fmt.Sprintf("Order confirmed. Order ID: %s. Tracking ID: %s.", orderID, trackingID)}, nil
}

// catalogName returns the catalog spelling of product. Without an inventory
// file any product is accepted.
func (c checkout) catalogName(product string) (string, error) {
	if c.Catalog == nil {
		return product, nil
	}

	catalog, err := c.Catalog()
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return product, nil
		}
		return "", err
	}

	p, ok := catalog.FindProduct(product)
	if !ok {
		return "", fmt.Errorf("product %q is not in the catalog", product)
	}
	return p.Name, nil
}

func (c checkout) fallback(value string, f ledger.Field) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	v, _ := c.Ledger.Get(f)
	return v
}

func parseEmail(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid email %q", s)
	}
	return otp.Normalize(addr.Address), nil
}
