package httpclient

import (
	"errors"
	"net"

	"github.com/ledgerops/heteroledger/internal/domain"
)

// classifyEngineErr maps a transport-level failure from postJSON into the
// domain error kinds spec §7's table names, so the orchestrator can branch
// on errors.Is regardless of which engine produced the failure.
func classifyEngineErr(err error) error {
	var statusErr *errHTTPStatus
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 423 || statusErr.StatusCode == 409 {
			return domain.ErrEngineBusy
		}
		return domain.ErrProtocol
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		// Retries are already exhausted by the time classifyEngineErr runs;
		// a lost reply after retry exhaustion is exactly the ambiguous case
		// spec §4.2's network-error handling rule covers — the orchestrator
		// cannot tell success-with-lost-reply from real failure and must
		// run its safety sweep.
		return domain.ErrNetwork
	}

	return err
}
