// Package marginalnote renders the archival note written in the margin of an
// annulled entry.
package marginalnote

import (
	"fmt"
	"strings"
	"time"

	"parishregistry/pkg/domain"
)

// DateLayout is the day-first layout used by parish archives.
const DateLayout = "02/01/2006"

const template = "Partida anulada por Decreto N.° %s de fecha %s. Véase la nueva inscripción en el Libro Supletorio %s, Folio %s."

// Generate returns the marginal note pointing a reader from an annulled entry
// to its replacement. The entry number is left out: the note directs the
// reader to a folio.
func Generate(decreeNumber string, decreeDate time.Time, newLocator domain.Locator) string {
	return fmt.Sprintf(template,
		strings.TrimSpace(decreeNumber),
		decreeDate.Format(DateLayout),
		strings.TrimSpace(newLocator.Book),
		strings.TrimSpace(newLocator.Folio),
	)
}
