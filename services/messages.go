package services

const (
	msgEntriesSaved     = "Daily Timesheet saved"
	msgSubmitted        = "Timesheet submitted for employee %s for week starting %s (Month: %d, Year: %d)"
	msgApproved         = "Timesheet of employee %s for week starting %s has been approved by manager %s."
	msgRejected         = "Timesheet of employee %s for week starting %s has been rejected by manager %s for correction."
	msgApprovedAll      = "Approved %d timesheet(s) for the week starting %s"
	msgSummaryNotFound  = "No weekly summary found for employee %s (week %s)"
	msgAssignmentAbsent = "Assignment not found for project '%s' and employee '%s'"
	msgProjectNotFound  = "Project not found with code: %s"
	msgUnknownProject   = "Unknown Project"
)
