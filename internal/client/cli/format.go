package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// describeError turns service errors into one line for the user.
func describeError(err error) string {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		keys := make([]string, 0, len(ve.Fields))
		for k := range ve.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+ve.Fields[k])
		}
		return "invalid input: " + strings.Join(parts, ", ")
	case errors.Is(err, client.ErrUnauthorized):
		return "not authorized, please login again"
	case errors.Is(err, client.ErrUnavailable):
		return "server is unreachable, try again when online"
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, client.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrStorageUnavailable):
		return "local storage failed: " + err.Error()
	default:
		return err.Error()
	}
}

func syncMark(synced bool) string {
	if synced {
		return " "
	}
	return "*"
}

func speaker(m *models.ChatMessage, viewerIsAdmin bool) string {
	switch {
	case m.IsAdmin && viewerIsAdmin:
		return "you"
	case m.IsAdmin:
		return "support"
	case viewerIsAdmin:
		return shortID(m.UserID)
	default:
		return "you"
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatExpense(e models.Expense) string {
	line := fmt.Sprintf("%s %s  %s  %10s  %s", syncMark(e.Synced), shortID(e.ID), e.Date, e.Amount.StringFixed(2), e.Category)
	if e.Description != "" {
		line += "  " + e.Description
	}
	return line
}
