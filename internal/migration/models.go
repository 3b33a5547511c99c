package migration

import (
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	artistdomain "github.com/smallbiznis/dreamforge/internal/artist/domain"
	auditdomain "github.com/smallbiznis/dreamforge/internal/audit/domain"
	creditpackdomain "github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	generationdomain "github.com/smallbiznis/dreamforge/internal/generation/domain"
	"github.com/smallbiznis/dreamforge/internal/idempotency"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
)

// Models lists every table in creation order.
func Models() []any {
	return []any{
		&accountdomain.Account{},
		&ledgerdomain.Transaction{},
		&idempotency.ProcessedEvent{},
		&creditpackdomain.CreditPack{},
		&creditpackdomain.Variant{},
		&paymentdomain.PurchaseRecord{},
		&artistdomain.Artist{},
		&generationdomain.Artifact{},
		&reconciliationdomain.Anomaly{},
		&auditdomain.AuditLog{},
	}
}
