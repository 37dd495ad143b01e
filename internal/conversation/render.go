package conversation

import (
	"fmt"
	"strings"

	"github.com/locvowork/attendance_bot/internal/domain"
)

const (
	topEmployees = 5
	// dateChoices is how many recent days the date picker offers.
	dateChoices = 7

	// maxTextBytes keeps a rendered list under the 4096 character message
	// limit, with room for a header and footer.
	maxTextBytes = 3500
	// maxEmployeeOptions caps the inline picker. Employees past it are
	// picked by typing their ID.
	maxEmployeeOptions = 40
)

const helpText = `ℹ️ HELP: ATTENDANCE TRACKING

👥 EMPLOYEES
• Add new employees
• List all employees

✅ MARKING PRESENCE
• Mark today
• Mark any past date

📊 REPORTS
• Overall statistics
• History of one employee
• Counts for a period
• Export to XLSX or CSV

🙋 SELF-SERVICE (any user)
• /register Full Name to link your account
• /checkin to mark yourself present today

Send /cancel at any time to abort the current action.`

const (
	msgNoAccess       = "❌ You do not have access to this bot.\nUse /register Full Name and /checkin to record your own attendance."
	msgFailure        = "⚠️ Something went wrong while talking to the database. Please try again later."
	msgCancelled      = "❌ Cancelled."
	msgUseMenu        = "Please use the menu buttons."
	msgSelectionStale = "⌛ That selection is no longer active. Start again from the menu."
	msgSessionExpired = "⌛ Your previous action timed out and was discarded."
	msgAskName        = "➕ New employee\n\nEnter the full name:"
	msgAskPosition    = "Enter the position, or send \"-\" to skip:"
	msgNoEmployees    = "❌ There are no active employees yet."
	msgAskPeriodStart = "📆 Report for a period\n\nEnter the first day (dd.mm.yyyy):"
	msgAskPeriodEnd   = "Enter the last day (dd.mm.yyyy):"
	msgAskCustomDate  = "Enter the date (dd.mm.yyyy):"
	msgPickEmployee   = "Please pick an employee from the list."
	msgRegisterUsage  = "Usage: /register Full Name"
	msgNotRegistered  = "You are not registered yet. Use /register Full Name first."
)

func renderWelcome(count int) string {
	return fmt.Sprintf("🏠 Attendance bot\n\nDatabase: ✅ connected\nEmployees: %d\n\nChoose an action:", count)
}

func renderEmployeesMenu(count int) string {
	return fmt.Sprintf("👥 Employees\n\nTotal employees: %d", count)
}

func renderPosition(e domain.Employee) string {
	if e.Position == nil {
		return ""
	}
	return " (" + *e.Position + ")"
}

func renderEmployeeList(employees []domain.Employee) string {
	if len(employees) == 0 {
		return "📋 The employee list is empty."
	}
	var sb strings.Builder
	sb.WriteString("📋 Employees\n\n")
	lines := make([]string, len(employees))
	for i, e := range employees {
		status := "🟢"
		if !e.IsActive {
			status = "⚪️"
		}
		lines[i] = fmt.Sprintf("%d. %s %s%s\n", i+1, status, e.FullName, renderPosition(e))
	}
	writeBounded(&sb, lines)
	return strings.TrimRight(sb.String(), "\n")
}

func renderRegistered(e *domain.Employee) string {
	return fmt.Sprintf("✅ Employee added\n\nName: %s\nPosition: %s\nID: %d",
		e.FullName, orDash(e.Position), e.ID)
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func renderPickEmployee(day domain.Date) string {
	return fmt.Sprintf("✅ Mark presence\n\nDate: %s\nChoose an employee:", day.Display())
}

func renderMarked(name string, day domain.Date) string {
	return fmt.Sprintf("✅ %s marked present on %s", name, day.Display())
}

func renderAlreadyMarked(name string, day domain.Date) string {
	return fmt.Sprintf("ℹ️ %s is already marked for %s", name, day.Display())
}

func renderGeneralReport(rep *domain.GeneralReport) string {
	var sb strings.Builder
	sb.WriteString("📊 GENERAL REPORT\n\n")
	fmt.Fprintf(&sb, "👥 Employees: %d\n", rep.TotalEmployees)
	fmt.Fprintf(&sb, "✅ Active: %d\n", rep.ActiveEmployees)
	fmt.Fprintf(&sb, "📈 Marks: %d\n", rep.TotalMarks)
	fmt.Fprintf(&sb, "🗓 Days with marks: %d\n", rep.DistinctDates)
	fmt.Fprintf(&sb, "📅 Date: %s", rep.GeneratedOn.Display())

	if len(rep.PerEmployee) > 0 {
		sb.WriteString("\n\n🏆 Top employees:\n")
		for i, c := range rep.PerEmployee {
			if i == topEmployees {
				break
			}
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, c.FullName, plural(c.Marks, "shift", "shifts"))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderEmployeeReport(rep *domain.EmployeeReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s%s\n", rep.Employee.FullName, renderPosition(rep.Employee))
	fmt.Fprintf(&sb, "Registered: %s\n", domain.DateOf(rep.Employee.RegisteredDate).Display())
	fmt.Fprintf(&sb, "Total: %s\n", plural(len(rep.Marks), "shift", "shifts"))
	if len(rep.Marks) > 0 {
		sb.WriteString("\nHistory:\n")
		lines := make([]string, len(rep.Marks))
		for i, m := range rep.Marks {
			lines[i] = "• " + m.CheckDate.Display() + "\n"
		}
		writeBounded(&sb, lines)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderPeriodReport(rep *domain.PeriodReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📆 REPORT %s – %s\n\n", rep.Start.Display(), rep.End.Display())
	if len(rep.PerEmployee) == 0 {
		sb.WriteString("No employees.")
		return sb.String()
	}
	lines := make([]string, len(rep.PerEmployee))
	for i, c := range rep.PerEmployee {
		lines[i] = fmt.Sprintf("%d. %s: %s\n", i+1, c.FullName, plural(c.Marks, "shift", "shifts"))
	}
	writeBounded(&sb, lines)
	fmt.Fprintf(&sb, "\nTotal: %s", plural(rep.TotalMarks(), "shift", "shifts"))
	return sb.String()
}

// writeBounded appends lines while the text stays under maxTextBytes and
// notes how many did not fit.
func writeBounded(sb *strings.Builder, lines []string) {
	for i, line := range lines {
		if sb.Len()+len(line) > maxTextBytes {
			fmt.Fprintf(sb, "…and %d more\n", len(lines)-i)
			return
		}
		sb.WriteString(line)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// employeePicker offers employees as inline choices under text. Past
// maxEmployeeOptions the rest are left out and the text says so.
func employeePicker(text string, employees []domain.Employee) Reply {
	shown := employees
	if len(shown) > maxEmployeeOptions {
		shown = shown[:maxEmployeeOptions]
		text += fmt.Sprintf("\n\nShowing %d of %d. Send an employee ID to pick someone else.",
			maxEmployeeOptions, len(employees))
	}
	opts := make([]EmployeeOption, 0, len(shown))
	for _, e := range shown {
		opts = append(opts, EmployeeOption{EmployeeID: e.ID, Label: e.FullName + renderPosition(e)})
	}
	return Reply{Text: text, Keyboard: KeyboardCancel, EmployeeOptions: opts}
}

// recentDays lists today and the days before it, newest first.
func recentDays(today domain.Date) []domain.Date {
	days := make([]domain.Date, dateChoices)
	for i := range days {
		days[i] = today.AddDays(-i)
	}
	return days
}
