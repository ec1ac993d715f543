// Package activity renders feed activities as localized text.
package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/docflow/internal/model"
)

// Lang selects the output language.
type Lang string

const (
	FI Lang = "fi"
	EN Lang = "en"
)

// ParseLang returns EN for "en" and FI for anything else.
func ParseLang(s string) Lang {
	if strings.EqualFold(s, string(EN)) {
		return EN
	}
	return FI
}

func pick(lang Lang, fi, en string) string {
	if lang == EN {
		return en
	}
	return fi
}

// Title returns a one-line heading for a, falling back to its action and
// then to a generic label.
func Title(a model.Activity, lang Lang) string {
	d := a.Details
	switch a.Type {
	case model.ActivityUpload:
		if d.Filename != "" {
			return pick(lang, "Dokumentti ladattu: ", "Document uploaded: ") + d.Filename
		}
		return pick(lang, "Dokumentti ladattu", "Document uploaded")
	case model.ActivityOCRCompleted:
		return pick(lang, "OCR-käsittely valmis", "OCR processing completed")
	case model.ActivityOCRFailed:
		return pick(lang, "OCR-käsittely epäonnistui", "OCR processing failed")
	case model.ActivityError, model.ActivitySystemError:
		if d.ErrorType != "" {
			return pick(lang, "Virhe: ", "Error: ") + d.ErrorType
		}
		return pick(lang, "Järjestelmävirhe", "System error")
	case model.ActivityAnalysisStarted:
		return pick(lang, "Analyysi aloitettu", "Analysis started")
	case model.ActivityExportGenerated:
		if d.ExportType != "" {
			return pick(lang, "Vienti valmis: ", "Export ready: ") + strings.ToUpper(d.ExportType)
		}
		return pick(lang, "Vienti valmis", "Export ready")
	}
	if a.Action != "" {
		return a.Action
	}
	return pick(lang, "Toiminto suoritettu", "Action completed")
}

// Details joins the type-specific facts of a with " • ".
func Details(a model.Activity, lang Lang) string {
	d := a.Details
	var parts []string
	add := func(fi, en, value string) {
		parts = append(parts, pick(lang, fi, en)+": "+value)
	}

	if a.Actor != "" {
		add("Käyttäjä", "User", a.Actor)
	}

	switch a.Type {
	case model.ActivityUpload:
		if d.FileSize > 0 {
			add("Koko", "Size", fmt.Sprintf("%.2f MB", float64(d.FileSize)/(1024*1024)))
		}
		if d.FileType != "" {
			add("Tyyppi", "Type", d.FileType)
		}
	case model.ActivityOCRCompleted:
		if d.PagesProcessed > 0 {
			add("Sivut", "Pages", strconv.Itoa(d.PagesProcessed))
		}
		if d.ProcessingTime > 0 {
			add("Aika", "Time", strconv.FormatFloat(d.ProcessingTime, 'f', -1, 64)+"s")
		}
		if d.Confidence > 0 {
			add("Luottamus", "Confidence", fmt.Sprintf("%.0f%%", d.Confidence*100))
		}
	case model.ActivityOCRFailed, model.ActivityError, model.ActivitySystemError:
		if d.ErrorMessage != "" {
			add("Virhe", "Error", d.ErrorMessage)
		}
		if d.RetryCount > 0 {
			add("Yritykset", "Attempts", strconv.Itoa(d.RetryCount))
		}
	case model.ActivityAnalysisStarted:
		if d.AnalysisType != "" {
			add("Tyyppi", "Type", d.AnalysisType)
		}
	case model.ActivityExportGenerated:
		if d.RecordsCount > 0 {
			add("Rivit", "Rows", strconv.Itoa(d.RecordsCount))
		}
		if d.FileSize > 0 {
			add("Koko", "Size", fmt.Sprintf("%.2f KB", float64(d.FileSize)/1024))
		}
	}

	if len(parts) == 0 {
		return pick(lang, "Ei lisätietoja", "No details")
	}
	return strings.Join(parts, " • ")
}

// Icon returns an emoji for the activity type.
func Icon(t model.ActivityType) string {
	switch t {
	case model.ActivityUpload:
		return "📤"
	case model.ActivityOCRCompleted:
		return "✅"
	case model.ActivityOCRFailed, model.ActivityError, model.ActivitySystemError:
		return "❌"
	case model.ActivityAnalysisStarted:
		return "🔄"
	case model.ActivityExportGenerated:
		return "📊"
	case model.ActivityAdminAction:
		return "🛠"
	case model.ActivityCustomerRegistered:
		return "👤"
	case model.ActivityContactRequested:
		return "✉"
	}
	return "📄"
}

// BadgeKind groups statuses for styling.
type BadgeKind string

const (
	BadgeSuccess BadgeKind = "success"
	BadgeError   BadgeKind = "error"
	BadgePending BadgeKind = "pending"
	BadgeWarning BadgeKind = "warning"
	BadgeDefault BadgeKind = "default"
)

// Badge is the label and style group of a status.
type Badge struct {
	Text string
	Kind BadgeKind
}

// StatusBadge returns the badge for s. Unknown statuses show verbatim.
func StatusBadge(s model.ActivityStatus, lang Lang) Badge {
	switch s {
	case model.StatusSuccess:
		return Badge{pick(lang, "Onnistui", "Succeeded"), BadgeSuccess}
	case model.StatusError:
		return Badge{pick(lang, "Virhe", "Error"), BadgeError}
	case model.StatusFailed:
		return Badge{pick(lang, "Epäonnistui", "Failed"), BadgeError}
	case model.StatusPending:
		return Badge{pick(lang, "Odottaa", "Pending"), BadgePending}
	case model.StatusProcessing:
		return Badge{pick(lang, "Käsitellään", "Processing"), BadgePending}
	case model.StatusWarning:
		return Badge{pick(lang, "Varoitus", "Warning"), BadgeWarning}
	}
	return Badge{string(s), BadgeDefault}
}

var enMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// RelativeTime describes how long before now t happened. Anything a week
// or older is shown as a date, with the year only when it differs from
// now's.
func RelativeTime(t, now time.Time, lang Lang) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}
	secs := int(diff / time.Second)
	mins := secs / 60
	hours := mins / 60
	days := hours / 24

	switch {
	case secs < 60:
		return fmt.Sprintf("%d s %s", secs, pick(lang, "sitten", "ago"))
	case mins < 60:
		return fmt.Sprintf("%d min %s", mins, pick(lang, "sitten", "ago"))
	case hours < 24:
		return fmt.Sprintf("%d h %s", hours, pick(lang, "sitten", "ago"))
	case days == 1:
		return pick(lang, "Eilen", "Yesterday")
	case days < 7:
		return fmt.Sprintf("%d %s", days, pick(lang, "päivää sitten", "days ago"))
	}

	local := t.In(now.Location())
	sameYear := local.Year() == now.Year()
	if lang == EN {
		s := fmt.Sprintf("%s %d", enMonths[local.Month()-1], local.Day())
		if !sameYear {
			s += fmt.Sprintf(", %d", local.Year())
		}
		return s
	}
	if sameYear {
		return fmt.Sprintf("%d.%d.", local.Day(), int(local.Month()))
	}
	return fmt.Sprintf("%d.%d.%d", local.Day(), int(local.Month()), local.Year())
}
