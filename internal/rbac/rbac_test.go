package rbac

import (
	"testing"

	"salesdesk_backend/platform/apperr"
)

func TestAuthorizeDeniesUnknownRole(t *testing.T) {
	err := Authorize(Role("intern"), ActionTriageLead)
	if err == nil {
		t.Fatal("expected unknown role to be denied")
	}
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden kind, got %v", apperr.GetKind(err))
	}
}

func TestAuthorizeDeniesUnknownAction(t *testing.T) {
	if err := Authorize(RoleAdministrator, Action("DropTables")); err == nil {
		t.Fatal("expected unknown action to be denied even for administrator")
	}
}

func TestForbiddenErrorNamesAction(t *testing.T) {
	err := Authorize(RoleSalesRep, ActionManageUsers)
	if err == nil {
		t.Fatal("expected sales rep to be denied ManageUsers")
	}

	domainErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	details, ok := domainErr.Details.(map[string]string)
	if !ok {
		t.Fatalf("expected detail map, got %T", domainErr.Details)
	}
	if details["action"] != string(ActionManageUsers) {
		t.Fatalf("expected action name in details, got %q", details["action"])
	}
}

func TestReadOnlyRolesDeniedAllMutations(t *testing.T) {
	for _, role := range []Role{RoleExecutiveViewer, RoleFinanceViewer} {
		for action := range mutatingActions {
			if err := Authorize(role, action); err == nil {
				t.Errorf("read-only role %s should be denied %s", role, action)
			}
		}
		if err := Authorize(role, ActionViewReports); err != nil {
			t.Errorf("read-only role %s should keep ViewReports: %v", role, err)
		}
	}
}

func TestMarketingQualifierLifecycleActions(t *testing.T) {
	for _, action := range []Action{ActionTriageLead, ActionHandoverLead} {
		if err := Authorize(RoleMarketingQualifier, action); err != nil {
			t.Errorf("marketing qualifier should be allowed %s: %v", action, err)
		}
	}
	if err := Authorize(RoleMarketingQualifier, ActionClaimLead); err == nil {
		t.Error("marketing qualifier must not claim pool leads")
	}
}

func TestSalesRepClaimAllowedTriageDenied(t *testing.T) {
	if err := Authorize(RoleSalesRep, ActionClaimLead); err != nil {
		t.Fatalf("sales rep should claim leads: %v", err)
	}
	if err := Authorize(RoleSalesRep, ActionConvertLead); err != nil {
		t.Fatalf("sales rep should convert their claimed leads: %v", err)
	}
	if err := Authorize(RoleSalesRep, ActionTriageLead); err == nil {
		t.Fatal("sales rep must not triage marketing leads")
	}
	if err := Authorize(RoleMarketingQualifier, ActionConvertLead); err == nil {
		t.Fatal("marketing roles must not convert claimed leads")
	}
}

func TestCanManageRoleScopedToDepartment(t *testing.T) {
	if !CanManageRole(RoleMarketingManager, RoleMarketingIntake) {
		t.Error("marketing manager should manage marketing intake users")
	}
	if CanManageRole(RoleMarketingManager, RoleSalesRep) {
		t.Error("marketing manager must not manage sales users")
	}
	if CanManageRole(RoleSalesManager, RoleMarketingQualifier) {
		t.Error("sales manager must not manage marketing users")
	}
	if !CanManageRole(RoleSalesManager, RoleSalesSenior) {
		t.Error("sales manager should manage sales seniors")
	}
	if !CanManageRole(RoleAdministrator, RoleMarketingManager) {
		t.Error("administrator should manage any role")
	}
	if CanManageRole(RoleSalesRep, RoleSalesRep) {
		t.Error("non-manager roles must not manage users at all")
	}
}

func TestRoleSetIsClosedAtFifteen(t *testing.T) {
	if got := len(Roles()); got != 15 {
		t.Fatalf("expected 15 roles, got %d", got)
	}
}

func TestSurfacesUnknownRoleEmpty(t *testing.T) {
	if got := Surfaces(Role("nobody")); got != nil {
		t.Fatalf("expected nil surfaces for unknown role, got %v", got)
	}
}
