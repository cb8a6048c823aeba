package quota

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"voicecoach-go/internal/logger"
)

// ImportWorkbook loads quota overrides from an ops-team spreadsheet. Expected
// columns on the first sheet: scope | scope_id | monthly_limit, with a header
// row. Rows are upserted; malformed rows are logged and skipped. Returns the
// number of rows imported.
func (r *Resolver) ImportWorkbook(ctx context.Context, path string) (int, error) {
	log := logger.Component("quota-import").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	imported := 0
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 3 {
			log.WithField("row", i+1).Warn("skipping short row")
			continue
		}

		scope := strings.ToLower(strings.TrimSpace(row[0]))
		scopeID := strings.TrimSpace(row[1])
		limit, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil || limit < 0 {
			log.WithField("row", i+1).Warn("skipping row with bad monthly_limit")
			continue
		}
		if scope == "global" {
			scopeID = ""
		}

		if err := r.SetLimit(ctx, scope, scopeID, limit); err != nil {
			log.WithField("row", i+1).WithError(err).Warn("skipping row")
			continue
		}
		imported++
	}

	log.WithField("imported", imported).Info("quota overrides imported")
	return imported, nil
}
