/*
validator.go - Submission validation

PURPOSE:
  Turns a raw Submission into a Pending Record, or reports the first
  rule it fails. Pure: the only input besides the submission is the
  injected clock used to find "today".

RULES (evaluated in this order, first failure wins):
  required       emp_id, name, email, leave_type, from_date, to_date, reason
  emp_id_format  ABC0123
  name_format    letters, internal dots, spaces
  email_format   open domain, or the configured company domain
  leave_type     member of the policy's allowed set
  date_range     to >= from, from within [today-3mo, today+1y], to <= today+1y
  hour_range     same-day leave: to_hour > from_hour
  reason_length  5..100 characters

  The order decides which single message a caller sees.
*/
package leave

import (
	"regexp"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Rule names, as reported in ValidationError.Rule.
const (
	RuleRequired     = "required"
	RuleEmpIDFormat  = "emp_id_format"
	RuleNameFormat   = "name_format"
	RuleEmailFormat  = "email_format"
	RuleLeaveType    = "leave_type"
	RuleDateRange    = "date_range"
	RuleHourRange    = "hour_range"
	RuleReasonLength = "reason_length"
)

const (
	MsgRequired        = "All required fields must be provided"
	MsgEmpIDFormat     = "Invalid Employee ID format (e.g., ABC0123)"
	MsgNameFormat      = "Invalid name format"
	MsgEmailFormat     = "Invalid email format"
	MsgLeaveType       = "Invalid leave type"
	MsgDateFormat      = "Invalid date format (use YYYY-MM-DD)"
	MsgToBeforeFrom    = "To Date cannot be earlier than From Date"
	MsgFromOutOfWindow = "From Date must be within the last 3 months or up to 1 year from now"
	MsgToTooFar        = "To Date cannot be more than 1 year from now"
	MsgHourFormat      = "Invalid hour format (use HH:MM)"
	MsgHourOrder       = "To Hour must be after From Hour"
	MsgReasonLength    = "Reason must be between 5 and 100 characters"
	MsgInvalidStatus   = "Invalid status"
	MsgEmpIDLookup     = "Invalid Employee ID format"
)

const (
	minReasonLen = 5
	maxReasonLen = 100
)

var (
	empIDPattern     = regexp.MustCompile(`^[A-Z]{3}0[0-9]{3}$`)
	namePattern      = regexp.MustCompile(`^[A-Za-z]+(?:\.[A-Za-z]+)*(?: [A-Za-z]+)*(?:\.[A-Za-z]+){0,3}$`)
	openEmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z]{2,15}\.[a-zA-Z]{2,3}$`)
)

// ValidEmpID reports whether id has the ABC0123 shape.
func ValidEmpID(id string) bool {
	return empIDPattern.MatchString(id)
}

// rule checks one aspect of a submission. Rules may fill in parsed
// fields on the draft for later rules to use.
type rule struct {
	name  string
	check func(s Submission, draft *Record) *ValidationError
}

// Validator applies the ordered rule table.
type Validator struct {
	policy Policy
	now    func() time.Time
	email  *regexp.Regexp
	rules  []rule
	fields *validator.Validate
}

// NewValidator builds a validator for policy. now defaults to time.Now.
func NewValidator(policy Policy, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	if len(policy.LeaveTypes) == 0 {
		policy.LeaveTypes = DefaultLeaveTypes
	}

	v := &Validator{
		policy: policy,
		now:    now,
		email:  openEmailPattern,
		fields: validator.New(validator.WithRequiredStructEnabled()),
	}
	if policy.EmailDomain != "" {
		v.email = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@` + regexp.QuoteMeta(policy.EmailDomain) + `$`)
	}

	v.rules = []rule{
		{RuleRequired, v.checkRequired},
		{RuleEmpIDFormat, v.checkEmpID},
		{RuleNameFormat, v.checkName},
		{RuleEmailFormat, v.checkEmail},
		{RuleLeaveType, v.checkLeaveType},
		{RuleDateRange, v.checkDates},
		{RuleHourRange, v.checkHours},
		{RuleReasonLength, v.checkReason},
	}
	return v
}

// Rules returns the rule names in evaluation order.
func (v *Validator) Rules() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.name
	}
	return names
}

// Validate returns a Pending record built from s, or the first
// *ValidationError encountered.
func (v *Validator) Validate(s Submission) (Record, error) {
	draft := Record{Status: StatusPending}
	for _, r := range v.rules {
		if err := r.check(s, &draft); err != nil {
			return Record{}, err
		}
	}
	return draft, nil
}

// =============================================================================
// RULES
// =============================================================================

func (v *Validator) checkRequired(s Submission, _ *Record) *ValidationError {
	if err := v.fields.Struct(s); err != nil {
		return invalid(RuleRequired, MsgRequired)
	}
	return nil
}

func (v *Validator) checkEmpID(s Submission, d *Record) *ValidationError {
	if !ValidEmpID(s.EmpID) {
		return invalid(RuleEmpIDFormat, MsgEmpIDFormat)
	}
	d.EmpID = s.EmpID
	return nil
}

func (v *Validator) checkName(s Submission, d *Record) *ValidationError {
	if !namePattern.MatchString(s.Name) {
		return invalid(RuleNameFormat, MsgNameFormat)
	}
	d.Name = s.Name
	return nil
}

func (v *Validator) checkEmail(s Submission, d *Record) *ValidationError {
	if !v.email.MatchString(s.Email) {
		return invalid(RuleEmailFormat, MsgEmailFormat)
	}
	d.Email = s.Email
	return nil
}

func (v *Validator) checkLeaveType(s Submission, d *Record) *ValidationError {
	lt := LeaveType(s.LeaveType)
	if !slices.Contains(v.policy.LeaveTypes, lt) {
		return invalid(RuleLeaveType, MsgLeaveType)
	}
	d.LeaveType = lt
	return nil
}

// checkDates reports to-before-from first, even when from is also
// outside the window.
func (v *Validator) checkDates(s Submission, d *Record) *ValidationError {
	from, err := ParseDate(s.FromDate)
	if err != nil {
		return invalid(RuleDateRange, MsgDateFormat)
	}
	to, err := ParseDate(s.ToDate)
	if err != nil {
		return invalid(RuleDateRange, MsgDateFormat)
	}

	today := DateOf(v.now())
	earliest := today.AddMonths(-3)
	latest := today.AddYears(1)

	switch {
	case to.Before(from):
		return invalid(RuleDateRange, MsgToBeforeFrom)
	case from.Before(earliest) || from.After(latest):
		return invalid(RuleDateRange, MsgFromOutOfWindow)
	case to.After(latest):
		return invalid(RuleDateRange, MsgToTooFar)
	}

	d.From, d.To = from, to
	return nil
}

// checkHours parses whichever hours were given; the ordering check only
// applies to single-day leave with both hours present.
func (v *Validator) checkHours(s Submission, d *Record) *ValidationError {
	var err error
	if d.FromHour, err = parseOptionalClock(s.FromHour); err != nil {
		return invalid(RuleHourRange, MsgHourFormat)
	}
	if d.ToHour, err = parseOptionalClock(s.ToHour); err != nil {
		return invalid(RuleHourRange, MsgHourFormat)
	}

	if d.From.Equal(d.To) && d.FromHour != nil && d.ToHour != nil && *d.ToHour <= *d.FromHour {
		return invalid(RuleHourRange, MsgHourOrder)
	}
	return nil
}

func (v *Validator) checkReason(s Submission, d *Record) *ValidationError {
	n := utf8.RuneCountInString(s.Reason)
	if n < minReasonLen || n > maxReasonLen {
		return invalid(RuleReasonLength, MsgReasonLength)
	}
	d.Reason = s.Reason
	return nil
}

func parseOptionalClock(s string) (*Clock, error) {
	if s == "" {
		return nil, nil
	}
	c, err := ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
