package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/logger"
)

// Ledger is the subset of the attendance ledger the driver calls.
type Ledger interface {
	RegisterEmployee(ctx context.Context, name string, position *string, principal *int64) (*domain.Employee, error)
	MarkPresence(ctx context.Context, employeeID int64, day domain.Date) (*domain.AttendanceMark, error)
	CheckIn(ctx context.Context, principal int64) (*domain.Employee, *domain.AttendanceMark, error)
	GetEmployee(ctx context.Context, id int64) (*domain.Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error)
	CountEmployees(ctx context.Context, activeOnly bool) (int, error)
	ReportGeneral(ctx context.Context) (*domain.GeneralReport, error)
	ReportByEmployee(ctx context.Context, employeeID int64) (*domain.EmployeeReport, error)
	ReportByPeriod(ctx context.Context, start, end domain.Date) (*domain.PeriodReport, error)
	Today() domain.Date
}

// Gate decides who may use administrative commands. An error means the
// answer is unknown and access is denied.
type Gate interface {
	CheckAdmin(ctx context.Context, principal int64) (bool, error)
}

// Exporter renders the general report as files.
type Exporter interface {
	GeneralReportXLSX(ctx context.Context) ([]byte, string, error)
	GeneralReportCSV(ctx context.Context) ([]byte, string, error)
}

// Driver routes each input according to the principal's session state.
type Driver struct {
	ledger   Ledger
	gate     Gate
	exporter Exporter
	sessions *SessionManager
}

func NewDriver(ledger Ledger, gate Gate, exporter Exporter, sessions *SessionManager) *Driver {
	return &Driver{
		ledger:   ledger,
		gate:     gate,
		exporter: exporter,
		sessions: sessions,
	}
}

// Handle processes one input to completion and returns the replies to send.
// Inputs from the same principal are serialized by the session lock.
func (d *Driver) Handle(ctx context.Context, in Input) []Reply {
	s := d.sessions.Acquire(in.Principal)
	defer d.sessions.Release(s)

	var replies []Reply
	if s.takeExpired() {
		replies = append(replies, Reply{Text: msgSessionExpired})
	}

	if in.Command.selfService() {
		return append(replies, d.handleSelfService(ctx, s, in)...)
	}

	admin, err := d.gate.CheckAdmin(ctx, in.Principal)
	if err != nil {
		logger.ErrorLog(ctx, "Admin check for %d failed: %v", in.Principal, err)
		return append(replies, Reply{Text: msgFailure})
	}
	if !admin {
		s.reset()
		logger.InfoLog(ctx, "Rejected command %d from non-admin %d", in.Command, in.Principal)
		return append(replies, Reply{Text: msgNoAccess, Keyboard: KeyboardRemove})
	}

	before := s.State
	out := d.dispatch(ctx, s, in)
	if before != s.State {
		logger.DebugLog(ctx, "Session %d: %s -> %s", in.Principal, before, s.State)
	}
	return append(replies, out...)
}

func (d *Driver) dispatch(ctx context.Context, s *Session, in Input) []Reply {
	switch in.Command {
	case CommandCancel:
		s.reset()
		return []Reply{{Text: msgCancelled, Keyboard: KeyboardMain}}
	case CommandNone:
		return d.handleText(ctx, s, strings.TrimSpace(in.Text))
	case CommandSelectEmployee:
		return d.handleEmployeeSelection(ctx, s, in.EmployeeID)
	case CommandSelectDate:
		return d.handleDateSelection(ctx, s, in.Date)
	case CommandOtherDate:
		if s.State != AwaitingMarkDateSelection {
			return d.stale(s)
		}
		s.State = AwaitingCustomDateText
		return []Reply{{Text: msgAskCustomDate, Keyboard: KeyboardCancel}}
	}

	// Every remaining command starts from a clean session, abandoning any
	// flow in progress.
	s.reset()

	switch in.Command {
	case CommandStart, CommandMainMenu:
		count, err := d.ledger.CountEmployees(ctx, false)
		if err != nil {
			return d.failure(s)
		}
		return []Reply{{Text: renderWelcome(count), Keyboard: KeyboardMain}}
	case CommandHelp:
		return []Reply{{Text: helpText, Keyboard: KeyboardMain}}
	case CommandEmployeesMenu:
		count, err := d.ledger.CountEmployees(ctx, false)
		if err != nil {
			return d.failure(s)
		}
		return []Reply{{Text: renderEmployeesMenu(count), Keyboard: KeyboardEmployees}}
	case CommandAddEmployee:
		s.State = AwaitingEmployeeName
		return []Reply{{Text: msgAskName, Keyboard: KeyboardCancel}}
	case CommandListEmployees:
		employees, err := d.ledger.ListEmployees(ctx, false)
		if err != nil {
			return d.failure(s)
		}
		return []Reply{{Text: renderEmployeeList(employees), Keyboard: KeyboardEmployees}}
	case CommandMarkToday:
		s.markDate = d.ledger.Today()
		return d.promptMarkEmployee(ctx, s)
	case CommandMarkForDate:
		s.State = AwaitingMarkDateSelection
		return []Reply{d.datePicker()}
	case CommandReportsMenu:
		return []Reply{{Text: "📊 Reports\n\nChoose a report:", Keyboard: KeyboardReports}}
	case CommandReportGeneral:
		rep, err := d.ledger.ReportGeneral(ctx)
		if err != nil {
			return d.failure(s)
		}
		return []Reply{{Text: renderGeneralReport(rep), Keyboard: KeyboardReports}}
	case CommandReportByEmployee:
		employees, err := d.ledger.ListEmployees(ctx, false)
		if err != nil {
			return d.failure(s)
		}
		if len(employees) == 0 {
			return []Reply{{Text: "📋 The employee list is empty.", Keyboard: KeyboardReports}}
		}
		s.State = AwaitingReportEmployeeSelection
		return []Reply{employeePicker("👤 Report for an employee\n\nChoose an employee:", employees)}
	case CommandReportByPeriod:
		s.State = AwaitingPeriodStart
		return []Reply{{Text: msgAskPeriodStart, Keyboard: KeyboardCancel}}
	case CommandExportXLSX:
		return d.export(ctx, s, d.exporter.GeneralReportXLSX)
	case CommandExportCSV:
		return d.export(ctx, s, d.exporter.GeneralReportCSV)
	}

	return []Reply{{Text: msgUseMenu, Keyboard: KeyboardMain}}
}

// handleText routes free text by state.
func (d *Driver) handleText(ctx context.Context, s *Session, text string) []Reply {
	switch s.State {
	case AwaitingEmployeeName:
		if text == "" {
			return []Reply{{Text: msgAskName, Keyboard: KeyboardCancel}}
		}
		s.pendingName = text
		s.State = AwaitingEmployeePosition
		return []Reply{{Text: msgAskPosition, Keyboard: KeyboardCancel}}

	case AwaitingEmployeePosition:
		var position *string
		if text != "" && text != "-" {
			position = &text
		}
		e, err := d.ledger.RegisterEmployee(ctx, s.pendingName, position, nil)
		switch {
		case err == nil:
			s.reset()
			return []Reply{{Text: renderRegistered(e), Keyboard: KeyboardEmployees}}
		case errors.Is(err, domain.ErrInvalidInput):
			s.pendingName = ""
			s.State = AwaitingEmployeeName
			return []Reply{{Text: "❌ " + userMessage(err) + "\n\n" + msgAskName, Keyboard: KeyboardCancel}}
		default:
			return d.failure(s)
		}

	case AwaitingMarkDateSelection, AwaitingCustomDateText:
		day, err := domain.ParseDate(text)
		if err != nil {
			if s.State == AwaitingCustomDateText {
				return []Reply{{Text: "❌ " + userMessage(err) + "\n\n" + msgAskCustomDate, Keyboard: KeyboardCancel}}
			}
			return []Reply{d.datePicker()}
		}
		return d.acceptMarkDate(ctx, s, day)

	case AwaitingMarkEmployeeSelection:
		if id, ok := parseEmployeeID(text); ok {
			return d.markSelected(ctx, s, id)
		}
		return d.promptMarkEmployeeWith(ctx, s, msgPickEmployee)

	case AwaitingReportEmployeeSelection:
		if id, ok := parseEmployeeID(text); ok {
			return d.handleEmployeeSelection(ctx, s, id)
		}
		employees, err := d.ledger.ListEmployees(ctx, false)
		if err != nil {
			return d.failure(s)
		}
		return []Reply{employeePicker(msgPickEmployee, employees)}

	case AwaitingPeriodStart:
		start, err := domain.ParseDate(text)
		if err != nil {
			return []Reply{{Text: "❌ " + userMessage(err) + "\n\n" + msgAskPeriodStart, Keyboard: KeyboardCancel}}
		}
		s.periodStart = start
		s.State = AwaitingPeriodEnd
		return []Reply{{Text: msgAskPeriodEnd, Keyboard: KeyboardCancel}}

	case AwaitingPeriodEnd:
		end, err := domain.ParseDate(text)
		if err != nil {
			return []Reply{{Text: "❌ " + userMessage(err) + "\n\n" + msgAskPeriodEnd, Keyboard: KeyboardCancel}}
		}
		rep, err := d.ledger.ReportByPeriod(ctx, s.periodStart, end)
		switch {
		case err == nil:
			s.reset()
			return []Reply{{Text: renderPeriodReport(rep), Keyboard: KeyboardReports}}
		case errors.Is(err, domain.ErrInvalidRange):
			return []Reply{{
				Text:     fmt.Sprintf("❌ The last day must not be before %s.\n\n%s", s.periodStart.Display(), msgAskPeriodEnd),
				Keyboard: KeyboardCancel,
			}}
		default:
			return d.failure(s)
		}
	}

	return []Reply{{Text: msgUseMenu, Keyboard: KeyboardMain}}
}

func (d *Driver) handleDateSelection(ctx context.Context, s *Session, day domain.Date) []Reply {
	if s.State != AwaitingMarkDateSelection {
		return d.stale(s)
	}
	return d.acceptMarkDate(ctx, s, day)
}

func (d *Driver) acceptMarkDate(ctx context.Context, s *Session, day domain.Date) []Reply {
	if day.After(d.ledger.Today()) {
		return []Reply{{Text: "❌ Attendance cannot be marked in advance.\n\n" + msgAskCustomDate, Keyboard: KeyboardCancel}}
	}
	s.markDate = day
	return d.promptMarkEmployee(ctx, s)
}

func (d *Driver) handleEmployeeSelection(ctx context.Context, s *Session, employeeID int64) []Reply {
	switch s.State {
	case AwaitingMarkEmployeeSelection:
		return d.markSelected(ctx, s, employeeID)
	case AwaitingReportEmployeeSelection:
		rep, err := d.ledger.ReportByEmployee(ctx, employeeID)
		switch {
		case err == nil:
			s.reset()
			return []Reply{{Text: renderEmployeeReport(rep), Keyboard: KeyboardReports}}
		case errors.Is(err, domain.ErrNotFound):
			return []Reply{{Text: "❌ Employee not found. " + msgPickEmployee, Keyboard: KeyboardCancel}}
		default:
			return d.failure(s)
		}
	}
	return d.stale(s)
}

func (d *Driver) markSelected(ctx context.Context, s *Session, employeeID int64) []Reply {
	day := s.markDate
	_, err := d.ledger.MarkPresence(ctx, employeeID, day)
	if err == nil || errors.Is(err, domain.ErrAlreadyMarked) {
		name := fmt.Sprintf("#%d", employeeID)
		if e, lookupErr := d.ledger.GetEmployee(ctx, employeeID); lookupErr == nil {
			name = e.FullName
		}
		s.reset()
		if err != nil {
			return []Reply{{Text: renderAlreadyMarked(name, day), Keyboard: KeyboardMain}}
		}
		return []Reply{{Text: renderMarked(name, day), Keyboard: KeyboardMain}}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput):
		return d.promptMarkEmployeeWith(ctx, s, "❌ "+userMessage(err)+"\n\n"+msgPickEmployee)
	default:
		return d.failure(s)
	}
}

func (d *Driver) promptMarkEmployee(ctx context.Context, s *Session) []Reply {
	return d.promptMarkEmployeeWith(ctx, s, renderPickEmployee(s.markDate))
}

func (d *Driver) promptMarkEmployeeWith(ctx context.Context, s *Session, text string) []Reply {
	employees, err := d.ledger.ListEmployees(ctx, true)
	if err != nil {
		return d.failure(s)
	}
	if len(employees) == 0 {
		s.reset()
		return []Reply{{Text: msgNoEmployees, Keyboard: KeyboardMain}}
	}
	s.State = AwaitingMarkEmployeeSelection
	return []Reply{employeePicker(text, employees)}
}

func (d *Driver) datePicker() Reply {
	return Reply{
		Text:           "📅 Choose the date to mark:",
		Keyboard:       KeyboardCancel,
		DateOptions:    recentDays(d.ledger.Today()),
		OfferOtherDate: true,
	}
}

func (d *Driver) export(ctx context.Context, s *Session, render func(context.Context) ([]byte, string, error)) []Reply {
	data, name, err := render(ctx)
	if err != nil {
		logger.ErrorLog(ctx, "Export failed: %v", err)
		return d.failure(s)
	}
	return []Reply{{
		Text:     "📎 Attendance report",
		Keyboard: KeyboardReports,
		Document: &Document{Name: name, Data: data},
	}}
}

func (d *Driver) handleSelfService(ctx context.Context, s *Session, in Input) []Reply {
	switch in.Command {
	case CommandCheckIn:
		e, m, err := d.ledger.CheckIn(ctx, in.Principal)
		switch {
		case err == nil:
			return []Reply{{Text: renderMarked(e.FullName, m.CheckDate)}}
		case errors.Is(err, domain.ErrAlreadyMarked):
			return []Reply{{Text: renderAlreadyMarked(e.FullName, d.ledger.Today())}}
		case errors.Is(err, domain.ErrNotFound):
			return []Reply{{Text: msgNotRegistered}}
		case errors.Is(err, domain.ErrInvalidInput):
			return []Reply{{Text: "❌ " + userMessage(err)}}
		default:
			return []Reply{{Text: msgFailure}}
		}

	case CommandRegisterSelf:
		name := strings.TrimSpace(in.Text)
		if name == "" {
			return []Reply{{Text: msgRegisterUsage}}
		}
		principal := in.Principal
		e, err := d.ledger.RegisterEmployee(ctx, name, nil, &principal)
		switch {
		case err == nil:
			return []Reply{{Text: fmt.Sprintf("✅ Registered as %s. Use /checkin to mark yourself present.", e.FullName)}}
		case errors.Is(err, domain.ErrDuplicateBinding):
			return []Reply{{Text: "ℹ️ Your account is already registered. Use /checkin."}}
		case errors.Is(err, domain.ErrInvalidInput):
			return []Reply{{Text: "❌ " + userMessage(err) + "\n" + msgRegisterUsage}}
		default:
			return []Reply{{Text: msgFailure}}
		}
	}
	return nil
}

// stale answers a selection that arrived outside the flow that offered it.
func (d *Driver) stale(s *Session) []Reply {
	s.reset()
	return []Reply{{Text: msgSelectionStale, Keyboard: KeyboardMain}}
}

// failure aborts the flow after a store error.
func (d *Driver) failure(s *Session) []Reply {
	s.reset()
	return []Reply{{Text: msgFailure, Keyboard: KeyboardMain}}
}

// userMessage strips the operation prefixes from an expected error so it
// reads well in chat.
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{domain.ErrInvalidInput, domain.ErrNotFound} {
		if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
			return capitalize(msg[i+len(sentinel.Error())+2:])
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "Employee not found."
	}
	return "Invalid input."
}

// parseEmployeeID accepts a typed employee ID, with or without a leading #.
func parseEmployeeID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(text, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
