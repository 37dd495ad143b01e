package conversation

import "github.com/locvowork/attendance_bot/internal/domain"

// State is where a principal is within a multi-step flow.
type State int

const (
	Idle State = iota
	AwaitingEmployeeName
	AwaitingEmployeePosition
	AwaitingMarkEmployeeSelection
	AwaitingMarkDateSelection
	AwaitingCustomDateText
	AwaitingReportEmployeeSelection
	AwaitingPeriodStart
	AwaitingPeriodEnd
)

var stateNames = map[State]string{
	Idle:                            "idle",
	AwaitingEmployeeName:            "awaiting_employee_name",
	AwaitingEmployeePosition:        "awaiting_employee_position",
	AwaitingMarkEmployeeSelection:   "awaiting_mark_employee_selection",
	AwaitingMarkDateSelection:       "awaiting_mark_date_selection",
	AwaitingCustomDateText:          "awaiting_custom_date_text",
	AwaitingReportEmployeeSelection: "awaiting_report_employee_selection",
	AwaitingPeriodStart:             "awaiting_period_start",
	AwaitingPeriodEnd:               "awaiting_period_end",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Command is what the transport decoded from a message. It never depends
// on button labels, so menu wording can change freely.
type Command int

const (
	// CommandNone means the message is free text; see Input.Text.
	CommandNone Command = iota
	CommandStart
	CommandCancel
	CommandMainMenu
	CommandHelp
	CommandEmployeesMenu
	CommandAddEmployee
	CommandListEmployees
	CommandMarkToday
	CommandMarkForDate
	CommandReportsMenu
	CommandReportGeneral
	CommandReportByEmployee
	CommandReportByPeriod
	CommandExportXLSX
	CommandExportCSV
	// Selections carry their value in Input.EmployeeID or Input.Date.
	CommandSelectEmployee
	CommandSelectDate
	CommandOtherDate
	// Self-service, open to every principal.
	CommandCheckIn
	CommandRegisterSelf
)

// selfService commands skip the admin gate.
func (c Command) selfService() bool {
	return c == CommandCheckIn || c == CommandRegisterSelf
}

// Input is one decoded message from a principal.
type Input struct {
	Principal  int64
	Command    Command
	Text       string
	EmployeeID int64
	Date       domain.Date
}

// Keyboard names the reply keyboard to show; the transport renders it.
type Keyboard int

const (
	// KeyboardKeep leaves whatever keyboard the chat already shows.
	KeyboardKeep Keyboard = iota
	KeyboardMain
	KeyboardEmployees
	KeyboardReports
	KeyboardCancel
	KeyboardRemove
)

// EmployeeOption is one selectable employee.
type EmployeeOption struct {
	EmployeeID int64
	Label      string
}

// Document is a file attachment.
type Document struct {
	Name string
	Data []byte
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Keyboard Keyboard
	// Inline choices attached to the message.
	EmployeeOptions []EmployeeOption
	DateOptions     []domain.Date
	OfferOtherDate  bool
	Document        *Document
}
