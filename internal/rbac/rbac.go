// Package rbac holds the static role/permission tables that gate every
// workflow mutation. The matrix is immutable after process start; there is
// no runtime mutation of permissions.
package rbac

import (
	"salesdesk_backend/platform/apperr"
)

// Role identifies one of the closed set of application roles.
type Role string

const (
	RoleMarketingIntake    Role = "marketing_intake"
	RoleMarketingQualifier Role = "marketing_qualifier"
	RoleMarketingManager   Role = "marketing_manager"
	RoleSalesRep           Role = "sales_rep"
	RoleSalesSenior        Role = "sales_senior"
	RoleSalesManager       Role = "sales_manager"
	RoleAccountManager     Role = "account_manager"
	RoleSalesOps           Role = "sales_ops"
	RoleCustomerSuccess    Role = "customer_success"
	RoleSupportAgent       Role = "support_agent"
	RolePartnerManager     Role = "partner_manager"
	RoleFinanceViewer      Role = "finance_viewer"
	RoleExecutiveViewer    Role = "executive_viewer"
	RoleAdministrator      Role = "administrator"
	RoleIntegration        Role = "integration"
)

// Action identifies one of the closed set of gated operations.
type Action string

const (
	ActionCreateLead             Action = "CreateLead"
	ActionAnnotateLead           Action = "AnnotateLead"
	ActionTriageLead             Action = "TriageLead"
	ActionHandoverLead           Action = "HandoverLead"
	ActionClaimLead              Action = "ClaimLead"
	ActionConvertLead            Action = "ConvertLead"
	ActionConvertTarget          Action = "ConvertTarget"
	ActionEditCustomer           Action = "EditCustomer"
	ActionSetPrimaryContact      Action = "SetPrimaryContact"
	ActionChangeOpportunityStage Action = "ChangeOpportunityStage"
	ActionCreateQuote            Action = "CreateQuote"
	ActionSendQuote              Action = "SendQuote"
	ActionDecideQuote            Action = "DecideQuote"
	ActionScheduleActivity       Action = "ScheduleActivity"
	ActionCompleteActivity       Action = "CompleteActivity"
	ActionUploadEvidence         Action = "UploadEvidence"
	ActionManageUsers            Action = "ManageUsers"
	ActionViewReports            Action = "ViewReports"
)

// Department groups roles for manager scoping.
type Department string

const (
	DeptMarketing Department = "marketing"
	DeptSales     Department = "sales"
	DeptSupport   Department = "support"
	DeptReadOnly  Department = "read_only"
	DeptPlatform  Department = "platform"
)

// Surface identifies a navigation surface the role may see.
type Surface string

const (
	SurfaceLeads         Surface = "leads"
	SurfacePool          Surface = "sales_pool"
	SurfaceAccounts      Surface = "accounts"
	SurfaceOpportunities Surface = "opportunities"
	SurfaceQuotes        Surface = "quotes"
	SurfaceActivities    Surface = "activities"
	SurfaceReports       Surface = "reports"
	SurfaceAdmin         Surface = "admin"
)

// definition is one row of the static role table.
type definition struct {
	department Department
	readOnly   bool
	actions    []Action
	surfaces   []Surface
}

var marketingMutations = []Action{
	ActionCreateLead, ActionAnnotateLead, ActionTriageLead, ActionHandoverLead,
}

var salesMutations = []Action{
	ActionAnnotateLead, ActionClaimLead, ActionConvertLead, ActionConvertTarget, ActionEditCustomer, ActionSetPrimaryContact,
	ActionChangeOpportunityStage, ActionCreateQuote, ActionSendQuote, ActionDecideQuote,
	ActionScheduleActivity, ActionCompleteActivity, ActionUploadEvidence,
}

var allActions = []Action{
	ActionCreateLead, ActionAnnotateLead, ActionTriageLead, ActionHandoverLead,
	ActionClaimLead, ActionConvertLead, ActionConvertTarget, ActionEditCustomer,
	ActionSetPrimaryContact, ActionChangeOpportunityStage, ActionCreateQuote,
	ActionSendQuote, ActionDecideQuote, ActionScheduleActivity,
	ActionCompleteActivity, ActionUploadEvidence, ActionManageUsers,
	ActionViewReports,
}

// roleTable is the static permission matrix. Read-only roles carry an empty
// action list regardless of surfaces; deny is the default everywhere else.
var roleTable = map[Role]definition{
	RoleMarketingIntake: {
		department: DeptMarketing,
		actions:    []Action{ActionCreateLead, ActionAnnotateLead},
		surfaces:   []Surface{SurfaceLeads},
	},
	RoleMarketingQualifier: {
		department: DeptMarketing,
		actions:    []Action{ActionCreateLead, ActionAnnotateLead, ActionTriageLead, ActionHandoverLead},
		surfaces:   []Surface{SurfaceLeads},
	},
	RoleMarketingManager: {
		department: DeptMarketing,
		actions:    append([]Action{ActionManageUsers, ActionViewReports}, marketingMutations...),
		surfaces:   []Surface{SurfaceLeads, SurfaceReports, SurfaceAdmin},
	},
	RoleSalesRep: {
		department: DeptSales,
		actions: []Action{
			ActionAnnotateLead, ActionClaimLead, ActionConvertLead, ActionEditCustomer,
			ActionChangeOpportunityStage, ActionCreateQuote, ActionSendQuote,
			ActionScheduleActivity, ActionCompleteActivity, ActionUploadEvidence,
		},
		surfaces: []Surface{SurfacePool, SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceActivities},
	},
	RoleSalesSenior: {
		department: DeptSales,
		actions:    salesMutations,
		surfaces:   []Surface{SurfacePool, SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceActivities},
	},
	RoleSalesManager: {
		department: DeptSales,
		actions:    append([]Action{ActionManageUsers, ActionViewReports}, salesMutations...),
		surfaces:   []Surface{SurfacePool, SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceActivities, SurfaceReports, SurfaceAdmin},
	},
	RoleAccountManager: {
		department: DeptSales,
		actions: []Action{
			ActionEditCustomer, ActionSetPrimaryContact, ActionChangeOpportunityStage,
			ActionCreateQuote, ActionSendQuote, ActionDecideQuote,
			ActionScheduleActivity, ActionCompleteActivity, ActionUploadEvidence,
		},
		surfaces: []Surface{SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceActivities},
	},
	RoleSalesOps: {
		department: DeptSales,
		actions:    append([]Action{ActionViewReports}, salesMutations...),
		surfaces:   []Surface{SurfacePool, SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceActivities, SurfaceReports},
	},
	RoleCustomerSuccess: {
		department: DeptSupport,
		actions:    []Action{ActionEditCustomer, ActionScheduleActivity, ActionCompleteActivity},
		surfaces:   []Surface{SurfaceAccounts, SurfaceActivities},
	},
	RoleSupportAgent: {
		department: DeptSupport,
		actions:    []Action{ActionScheduleActivity, ActionCompleteActivity},
		surfaces:   []Surface{SurfaceAccounts, SurfaceActivities},
	},
	RolePartnerManager: {
		department: DeptSales,
		actions:    []Action{ActionCreateLead, ActionConvertTarget, ActionEditCustomer, ActionScheduleActivity, ActionCompleteActivity},
		surfaces:   []Surface{SurfaceLeads, SurfaceAccounts, SurfaceActivities},
	},
	RoleFinanceViewer: {
		department: DeptReadOnly,
		readOnly:   true,
		actions:    []Action{ActionViewReports},
		surfaces:   []Surface{SurfaceQuotes, SurfaceReports},
	},
	RoleExecutiveViewer: {
		department: DeptReadOnly,
		readOnly:   true,
		actions:    []Action{ActionViewReports},
		surfaces:   []Surface{SurfaceLeads, SurfacePool, SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceReports},
	},
	RoleAdministrator: {
		department: DeptPlatform,
		actions:    allActions,
		surfaces:   []Surface{SurfaceLeads, SurfacePool, SurfaceAccounts, SurfaceOpportunities, SurfaceQuotes, SurfaceActivities, SurfaceReports, SurfaceAdmin},
	},
	RoleIntegration: {
		department: DeptPlatform,
		actions:    []Action{ActionCreateLead, ActionConvertTarget},
		surfaces:   nil,
	},
}

// mutatingActions contains every action that changes state. Read-only roles
// are denied all of these regardless of their action list.
var mutatingActions = map[Action]bool{
	ActionCreateLead: true, ActionAnnotateLead: true, ActionTriageLead: true, ActionHandoverLead: true,
	ActionClaimLead: true, ActionConvertLead: true, ActionConvertTarget: true, ActionEditCustomer: true,
	ActionSetPrimaryContact: true, ActionChangeOpportunityStage: true,
	ActionCreateQuote: true, ActionSendQuote: true, ActionDecideQuote: true,
	ActionScheduleActivity: true, ActionCompleteActivity: true,
	ActionUploadEvidence: true, ActionManageUsers: true,
}

// matrix is the flattened allow table, built once at init.
var matrix = buildMatrix()

func buildMatrix() map[Role]map[Action]bool {
	m := make(map[Role]map[Action]bool, len(roleTable))
	for role, def := range roleTable {
		allowed := make(map[Action]bool, len(def.actions))
		for _, action := range def.actions {
			if def.readOnly && mutatingActions[action] {
				continue
			}
			allowed[action] = true
		}
		m[role] = allowed
	}
	return m
}

// Authorize checks whether the role may perform the action. Unknown roles and
// unknown actions are denied. The returned error names the refused action so
// callers can log it with context.
func Authorize(role Role, action Action) error {
	allowed, known := matrix[role]
	if !known || !allowed[action] {
		return apperr.Forbidden("action " + string(action) + " is not permitted for role " + string(role)).
			WithDetails(map[string]string{"action": string(action), "role": string(role)})
	}
	return nil
}

// CanManageRole reports whether a manager role may administer users holding
// the target role. Managers administer only their own department's roster;
// the administrator manages everyone.
func CanManageRole(manager Role, target Role) bool {
	if Authorize(manager, ActionManageUsers) != nil {
		return false
	}
	if manager == RoleAdministrator {
		return true
	}

	managerDef, ok := roleTable[manager]
	if !ok {
		return false
	}
	targetDef, ok := roleTable[target]
	if !ok {
		return false
	}

	return managerDef.department == targetDef.department
}

// Surfaces returns the navigation surfaces visible to the role.
func Surfaces(role Role) []Surface {
	def, ok := roleTable[role]
	if !ok {
		return nil
	}
	return append([]Surface(nil), def.surfaces...)
}

// Known reports whether the role is part of the closed role set.
func Known(role Role) bool {
	_, ok := roleTable[role]
	return ok
}

// Roles returns the closed set of role identifiers.
func Roles() []Role {
	out := make([]Role, 0, len(roleTable))
	for role := range roleTable {
		out = append(out, role)
	}
	return out
}
