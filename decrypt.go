package bankcore

import (
	"github.com/shopspring/decimal"

	"github.com/vaultline/bankcore/internal/tokenization"
	"github.com/vaultline/bankcore/model"
)

// DecryptPurchase returns a copy of req with the card number, PIN and vendor
// aliases decrypted. Amounts are not encrypted.
func DecryptPurchase(d tokenization.Decrypter, req model.PurchaseRequest) (model.PurchaseRequest, error) {
	var err error
	out := model.PurchaseRequest{Lines: make([]model.VendorLine, len(req.Lines))}

	if out.CardNumber, err = d.Decrypt(req.CardNumber); err != nil {
		return model.PurchaseRequest{}, err
	}
	if out.KeyPIN, err = d.Decrypt(req.KeyPIN); err != nil {
		return model.PurchaseRequest{}, err
	}
	for i, line := range req.Lines {
		alias, err := d.Decrypt(line.VendorAlias)
		if err != nil {
			return model.PurchaseRequest{}, err
		}
		out.Lines[i] = model.VendorLine{VendorAlias: alias, Amount: line.Amount}
	}
	return out, nil
}

// DecryptRefund returns a copy of req with certificates and the requesting alias decrypted.
func DecryptRefund(d tokenization.Decrypter, req model.RefundRequest) (model.RefundRequest, error) {
	out := model.RefundRequest{
		Certificates: make([]string, len(req.Certificates)),
		Amounts:      append([]decimal.Decimal(nil), req.Amounts...),
	}

	for i, certificate := range req.Certificates {
		plain, err := d.Decrypt(certificate)
		if err != nil {
			return model.RefundRequest{}, err
		}
		out.Certificates[i] = plain
	}

	alias, err := d.Decrypt(req.RequestingAlias)
	if err != nil {
		return model.RefundRequest{}, err
	}
	out.RequestingAlias = alias
	return out, nil
}
