package mongodoc

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toD128 converts an application decimal.Decimal into the BSON Decimal128
// representation stored on every amount/balance/hold_amount field. This is
// the one lossless numeric type Mongo offers, mirroring
// original_source/BE/services/mongo_tx_service.py's `_d128`.
func toD128(d decimal.Decimal) primitive.Decimal128 {
	dec128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// decimal.Decimal.String() always produces a syntactically valid
		// decimal literal, so ParseDecimal128 cannot fail here.
		panic("mongodoc: unreachable decimal128 parse failure: " + err.Error())
	}
	return dec128
}

// fromD128 is the inverse of toD128, used when reading amounts back for
// ledger conservation checks and HTTP responses.
func fromD128(d primitive.Decimal128) decimal.Decimal {
	dec, err := decimal.NewFromString(d.String())
	if err != nil {
		panic("mongodoc: unreachable decimal128 string parse failure: " + err.Error())
	}
	return dec
}

// negD128 mirrors `_neg_d128`: produce the negated Decimal128, used when
// writing the debit leg of a ledger posting.
func negD128(d primitive.Decimal128) primitive.Decimal128 {
	return toD128(fromD128(d).Neg())
}
