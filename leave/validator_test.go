package leave_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-service/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var fixedNow = time.Date(2025, time.February, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestValidator(t *testing.T) *leave.Validator {
	t.Helper()
	return leave.NewValidator(leave.DefaultPolicy(), fixedClock)
}

func validSubmission() leave.Submission {
	return leave.Submission{
		EmpID:     "ABC0123",
		Name:      "John Doe",
		Email:     "john.doe@example.com",
		LeaveType: "sick",
		FromDate:  "2025-03-01",
		ToDate:    "2025-03-05",
		Reason:    "Flu and fever",
	}
}

func requireRule(t *testing.T, err error, rule, message string) {
	t.Helper()
	require.Error(t, err)
	var verr *leave.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, rule, verr.Rule)
	assert.Equal(t, message, verr.Message)
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestValidator_ValidSubmission_ReturnsPendingRecord(t *testing.T) {
	v := newTestValidator(t)

	rec, err := v.Validate(validSubmission())

	require.NoError(t, err)
	assert.Equal(t, "ABC0123", rec.EmpID)
	assert.Equal(t, leave.TypeSick, rec.LeaveType)
	assert.Equal(t, leave.StatusPending, rec.Status)
	assert.Equal(t, "2025-03-01", rec.From.String())
	assert.Equal(t, "2025-03-05", rec.To.String())
	assert.Nil(t, rec.FromHour)
	assert.Nil(t, rec.ToHour)
	assert.Zero(t, rec.ID)
}

func TestValidator_RulesInDocumentedOrder(t *testing.T) {
	v := newTestValidator(t)

	assert.Equal(t, []string{
		leave.RuleRequired,
		leave.RuleEmpIDFormat,
		leave.RuleNameFormat,
		leave.RuleEmailFormat,
		leave.RuleLeaveType,
		leave.RuleDateRange,
		leave.RuleHourRange,
		leave.RuleReasonLength,
	}, v.Rules())
}

// =============================================================================
// PRESENCE
// =============================================================================

func TestValidator_MissingField_AlwaysRequiredMessage(t *testing.T) {
	// GIVEN: A submission that also fails every later rule
	// WHEN: Any one required field is blank
	// THEN: The presence error wins

	blanks := map[string]func(*leave.Submission){
		"emp_id":     func(s *leave.Submission) { s.EmpID = "" },
		"name":       func(s *leave.Submission) { s.Name = "" },
		"email":      func(s *leave.Submission) { s.Email = "" },
		"leave_type": func(s *leave.Submission) { s.LeaveType = "" },
		"from_date":  func(s *leave.Submission) { s.FromDate = "" },
		"to_date":    func(s *leave.Submission) { s.ToDate = "" },
		"reason":     func(s *leave.Submission) { s.Reason = "" },
	}

	v := newTestValidator(t)
	for field, blank := range blanks {
		t.Run(field, func(t *testing.T) {
			s := leave.Submission{
				EmpID:     "bad",
				Name:      "123",
				Email:     "nope",
				LeaveType: "vacation",
				FromDate:  "2030-01-10",
				ToDate:    "2020-01-01",
				Reason:    "x",
			}
			blank(&s)

			_, err := v.Validate(s)
			requireRule(t, err, leave.RuleRequired, leave.MsgRequired)
		})
	}
}

func TestValidator_HoursAreOptional(t *testing.T) {
	v := newTestValidator(t)
	s := validSubmission()
	s.FromHour, s.ToHour = "", ""

	_, err := v.Validate(s)
	assert.NoError(t, err)
}

// =============================================================================
// FIELD FORMATS
// =============================================================================

func TestValidator_EmpIDFormat(t *testing.T) {
	v := newTestValidator(t)

	for _, id := range []string{"abc0123", "AB01234", "ABC1123", "ABCD0123", "ABC012", "ABC0123 "} {
		t.Run(id, func(t *testing.T) {
			s := validSubmission()
			s.EmpID = id
			_, err := v.Validate(s)
			requireRule(t, err, leave.RuleEmpIDFormat, leave.MsgEmpIDFormat)
		})
	}
}

func TestValidator_NameFormat(t *testing.T) {
	v := newTestValidator(t)

	valid := []string{"John", "John Doe", "J.R.R Tolkien", "Mary Ann Smith", "John Smith.Jr"}
	for _, name := range valid {
		s := validSubmission()
		s.Name = name
		_, err := v.Validate(s)
		assert.NoError(t, err, "name %q should be accepted", name)
	}

	invalid := []string{"John  Doe", "John3", " John", "John-Doe", ".John"}
	for _, name := range invalid {
		s := validSubmission()
		s.Name = name
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleNameFormat, leave.MsgNameFormat)
	}
}

func TestValidator_EmailFormat_OpenDomain(t *testing.T) {
	v := newTestValidator(t)

	for _, email := range []string{"ab@cd.co", "first.last+tag@company.com"} {
		s := validSubmission()
		s.Email = email
		_, err := v.Validate(s)
		assert.NoError(t, err, "email %q should be accepted", email)
	}

	for _, email := range []string{"no-at-sign", "a@b", "a@b.c", "a@sub.domain.com", "a@b.info"} {
		s := validSubmission()
		s.Email = email
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleEmailFormat, leave.MsgEmailFormat)
	}
}

func TestValidator_EmailFormat_CompanyDomain(t *testing.T) {
	// GIVEN: Emails restricted to one organization domain
	policy := leave.DefaultPolicy()
	policy.EmailDomain = "acme.co.in"
	v := leave.NewValidator(policy, fixedClock)

	s := validSubmission()
	s.Email = "john.doe@acme.co.in"
	_, err := v.Validate(s)
	assert.NoError(t, err)

	s.Email = "john.doe@example.com"
	_, err = v.Validate(s)
	requireRule(t, err, leave.RuleEmailFormat, leave.MsgEmailFormat)

	// Domain dots are literal
	s.Email = "john.doe@acmeXco.in"
	_, err = v.Validate(s)
	requireRule(t, err, leave.RuleEmailFormat, leave.MsgEmailFormat)
}

func TestValidator_LeaveType(t *testing.T) {
	v := newTestValidator(t)

	for _, lt := range leave.DefaultLeaveTypes {
		s := validSubmission()
		s.LeaveType = string(lt)
		_, err := v.Validate(s)
		assert.NoError(t, err, "leave type %q should be accepted", lt)
	}

	for _, lt := range []string{"vacation", "Sick", "SICK"} {
		s := validSubmission()
		s.LeaveType = lt
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleLeaveType, leave.MsgLeaveType)
	}
}

func TestValidator_LeaveType_ConfiguredSet(t *testing.T) {
	policy := leave.DefaultPolicy()
	policy.LeaveTypes = []leave.LeaveType{"sick", "casual"}
	v := leave.NewValidator(policy, fixedClock)

	s := validSubmission()
	s.LeaveType = "earned"
	_, err := v.Validate(s)
	requireRule(t, err, leave.RuleLeaveType, leave.MsgLeaveType)
}

// =============================================================================
// DATE RANGE
// =============================================================================

func TestValidator_DateRange_ToBeforeFromWins(t *testing.T) {
	// GIVEN: today = 2025-02-15
	// WHEN: to < from, with from both inside and outside the window
	// THEN: Always the to-before-from message

	v := newTestValidator(t)
	cases := []struct{ from, to string }{
		{"2025-03-10", "2025-03-01"}, // from in window
		{"2027-01-10", "2027-01-01"}, // from too far ahead
		{"2024-01-10", "2024-01-01"}, // from too old
	}
	for _, c := range cases {
		s := validSubmission()
		s.FromDate, s.ToDate = c.from, c.to
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleDateRange, leave.MsgToBeforeFrom)
	}
}

func TestValidator_DateRange_FromWindow(t *testing.T) {
	v := newTestValidator(t)

	// Boundaries are inclusive: [2024-11-15, 2026-02-15]
	for _, from := range []string{"2024-11-15", "2026-02-15"} {
		s := validSubmission()
		s.FromDate, s.ToDate = from, from
		_, err := v.Validate(s)
		assert.NoError(t, err, "from %s should be inside the window", from)
	}

	for _, from := range []string{"2024-11-14", "2026-02-16"} {
		s := validSubmission()
		s.FromDate, s.ToDate = from, "2026-12-31"
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleDateRange, leave.MsgFromOutOfWindow)
	}
}

func TestValidator_DateRange_ToTooFar(t *testing.T) {
	v := newTestValidator(t)

	s := validSubmission()
	s.FromDate, s.ToDate = "2026-02-01", "2026-02-16"
	_, err := v.Validate(s)
	requireRule(t, err, leave.RuleDateRange, leave.MsgToTooFar)
}

func TestValidator_DateRange_Malformed(t *testing.T) {
	v := newTestValidator(t)

	for _, d := range []string{"01/03/2025", "2025-3-1", "2025-02-30", "tomorrow"} {
		s := validSubmission()
		s.FromDate = d
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleDateRange, leave.MsgDateFormat)
	}
}

// =============================================================================
// HOURS
// =============================================================================

func TestValidator_Hours_OnlyCheckedForSingleDay(t *testing.T) {
	v := newTestValidator(t)

	// Same day, to before from: fails
	s := validSubmission()
	s.FromDate, s.ToDate = "2025-01-10", "2025-01-10"
	s.FromHour, s.ToHour = "10:00", "09:00"
	_, err := v.Validate(s)
	requireRule(t, err, leave.RuleHourRange, leave.MsgHourOrder)

	// Same hours over two days: hours ignored
	s.ToDate = "2025-01-11"
	_, err = v.Validate(s)
	assert.NoError(t, err)
}

func TestValidator_Hours_EqualIsRejected(t *testing.T) {
	v := newTestValidator(t)

	s := validSubmission()
	s.FromDate, s.ToDate = "2025-03-03", "2025-03-03"
	s.FromHour, s.ToHour = "09:00", "09:00"
	_, err := v.Validate(s)
	requireRule(t, err, leave.RuleHourRange, leave.MsgHourOrder)
}

func TestValidator_Hours_SingleHourSkipsOrdering(t *testing.T) {
	v := newTestValidator(t)

	s := validSubmission()
	s.FromDate, s.ToDate = "2025-03-03", "2025-03-03"
	s.FromHour = "14:00"
	rec, err := v.Validate(s)
	require.NoError(t, err)
	require.NotNil(t, rec.FromHour)
	assert.Equal(t, "14:00", rec.FromHour.String())
	assert.Nil(t, rec.ToHour)
}

func TestValidator_Hours_Malformed(t *testing.T) {
	v := newTestValidator(t)

	s := validSubmission()
	s.ToHour = "9am"
	_, err := v.Validate(s)
	requireRule(t, err, leave.RuleHourRange, leave.MsgHourFormat)
}

func TestValidator_Hours_AcceptSeconds(t *testing.T) {
	v := newTestValidator(t)

	s := validSubmission()
	s.FromDate, s.ToDate = "2025-03-03", "2025-03-03"
	s.FromHour, s.ToHour = "09:00:00", "13:30:00"
	rec, err := v.Validate(s)
	require.NoError(t, err)
	assert.Equal(t, "13:30", rec.ToHour.String())
}

// =============================================================================
// REASON
// =============================================================================

func TestValidator_ReasonLength(t *testing.T) {
	v := newTestValidator(t)

	for _, n := range []int{5, 100} {
		s := validSubmission()
		s.Reason = strings.Repeat("r", n)
		_, err := v.Validate(s)
		assert.NoError(t, err, "reason of %d chars should be accepted", n)
	}

	for _, n := range []int{4, 101} {
		s := validSubmission()
		s.Reason = strings.Repeat("r", n)
		_, err := v.Validate(s)
		requireRule(t, err, leave.RuleReasonLength, leave.MsgReasonLength)
	}
}

func TestValidator_ReasonLength_CountsCharacters(t *testing.T) {
	v := newTestValidator(t)

	s := validSubmission()
	s.Reason = "fièvre" // 6 characters, 7 bytes
	_, err := v.Validate(s)
	assert.NoError(t, err)

	s.Reason = strings.Repeat("é", 100) // 100 characters, 200 bytes
	_, err = v.Validate(s)
	assert.NoError(t, err)
}

// =============================================================================
// PRIORITY
// =============================================================================

func TestValidator_FirstFailureWins(t *testing.T) {
	v := newTestValidator(t)

	// Bad emp id and bad email: emp id reported
	s := validSubmission()
	s.EmpID = "abc0123"
	s.Email = "nope"
	_, err := v.Validate(s)
	requireRule(t, err, leave.RuleEmpIDFormat, leave.MsgEmpIDFormat)

	// Bad leave type and bad dates: leave type reported
	s = validSubmission()
	s.LeaveType = "vacation"
	s.FromDate, s.ToDate = "2025-03-10", "2025-03-01"
	_, err = v.Validate(s)
	requireRule(t, err, leave.RuleLeaveType, leave.MsgLeaveType)

	// Bad dates and short reason: dates reported
	s = validSubmission()
	s.FromDate, s.ToDate = "2025-03-10", "2025-03-01"
	s.Reason = "no"
	_, err = v.Validate(s)
	requireRule(t, err, leave.RuleDateRange, leave.MsgToBeforeFrom)
}
