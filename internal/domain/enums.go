package domain

type WorkType string

const (
	WorkProject     WorkType = "project"
	WorkSubProject  WorkType = "sub_project"
	WorkActivity    WorkType = "activity"
	WorkSubActivity WorkType = "sub_activity"
	WorkTask        WorkType = "task"
	WorkSubtask     WorkType = "subtask"
)

// AllowedChildTypes maps each work type to the child types it may contain.
// Subtasks are always leaves.
var AllowedChildTypes = map[WorkType][]WorkType{
	WorkProject:     {WorkSubProject, WorkActivity, WorkTask},
	WorkSubProject:  {WorkSubProject, WorkActivity, WorkTask},
	WorkActivity:    {WorkSubActivity, WorkTask},
	WorkSubActivity: {WorkSubActivity, WorkTask},
	WorkTask:        {WorkSubtask},
	WorkSubtask:     {},
}

type WorkItemStatus string

const (
	WorkItemNotStarted WorkItemStatus = "not_started"
	WorkItemInProgress WorkItemStatus = "in_progress"
	WorkItemAtRisk     WorkItemStatus = "at_risk"
	WorkItemBlocked    WorkItemStatus = "blocked"
	WorkItemCompleted  WorkItemStatus = "completed"
	WorkItemCancelled  WorkItemStatus = "cancelled"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

type AllotmentStatus string

const (
	AllotmentReleased       AllotmentStatus = "released"
	AllotmentFullyObligated AllotmentStatus = "fully_obligated"
	AllotmentClosed         AllotmentStatus = "closed"
)

type ObligationStatus string

const (
	ObligationObligated          ObligationStatus = "obligated"
	ObligationPartiallyDisbursed ObligationStatus = "partially_disbursed"
	ObligationFullyDisbursed     ObligationStatus = "fully_disbursed"
	ObligationCancelled          ObligationStatus = "cancelled"
)

// DisbursementStatus is the stored payment lifecycle. The ledger records
// payments at settlement, so new disbursements enter as paid and reversal is
// the only transition it performs; pending and failed complete the stored
// lifecycle for capacity accounting (pending and paid hold obligation
// capacity, failed and reversed release it).
type DisbursementStatus string

const (
	DisbursementPending  DisbursementStatus = "pending"
	DisbursementPaid     DisbursementStatus = "paid"
	DisbursementFailed   DisbursementStatus = "failed"
	DisbursementReversed DisbursementStatus = "reversed"
)

type PaymentMethod string

const (
	PaymentCheck        PaymentMethod = "check"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCash         PaymentMethod = "cash"
	PaymentOther        PaymentMethod = "other"
)

// ValidPaymentMethods is the canonical set of accepted payment method strings.
var ValidPaymentMethods = map[string]bool{
	"check": true, "bank_transfer": true, "cash": true, "other": true,
}

type DistributionStrategy string

const (
	DistributeEqual    DistributionStrategy = "equal"
	DistributeWeighted DistributionStrategy = "weighted"
	DistributeManual   DistributionStrategy = "manual"
)

// StructureTemplate selects which default children EnableTracking pre-populates
// under a new execution root.
type StructureTemplate string

const (
	TemplateActivity  StructureTemplate = "activity"
	TemplateMilestone StructureTemplate = "milestone"
	TemplateBudget    StructureTemplate = "budget"
)

// ValidStructureTemplates is the canonical set of accepted template tags.
var ValidStructureTemplates = map[string]bool{
	"activity": true, "milestone": true, "budget": true,
}
