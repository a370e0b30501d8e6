package workflow

// The built-in catalog is compiled into the binary and used when no
// catalog file is configured. Deployments with custom automation ship a
// YAML catalog instead; the built-in set covers the standard individual
// and business engagement lifecycle.

// DefaultCatalog returns the built-in template catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Stages: []StageTemplates{
			{
				Category: CategoryIndividual,
				Stage:    StageIntakeComplete,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Collect identification and income documents for {{client_name}}",
						DescriptionPattern:       "Request W-2s, 1099s, and photo ID from {{client_name}} and confirm receipt.",
						Category:                 WorkDocumentCollection,
						Priority:                 PriorityHigh,
						EstimatedDurationMinutes: 30,
						CompletionTriggers:       []string{"document_collection_setup"},
					},
					{
						TitlePattern:             "Schedule initial consultation with {{client_name}}",
						DescriptionPattern:       "Book a kickoff call to walk {{client_name}} through the engagement.",
						Category:                 WorkCommunication,
						Priority:                 PriorityMedium,
						EstimatedDurationMinutes: 15,
					},
				},
			},
			{
				Category: CategoryIndividual,
				Stage:    StageDocumentsPending,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Review uploaded documents for {{client_name}}",
						DescriptionPattern:       "Verify completeness and legibility of every document {{client_name}} has uploaded.",
						Category:                 WorkReview,
						Priority:                 PriorityHigh,
						EstimatedDurationMinutes: 45,
						CompletionTriggers:       []string{"document_review_complete"},
					},
				},
			},
			{
				Category: CategoryIndividual,
				Stage:    StageFormsGenerated,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Review generated return for {{client_name}}",
						DescriptionPattern:       "Check the generated forms against source documents before client sign-off.",
						Category:                 WorkReview,
						Priority:                 PriorityUrgent,
						EstimatedDurationMinutes: 60,
						CompletionTriggers:       []string{"return_review_complete"},
					},
				},
			},
			{
				Category: CategoryIndividual,
				Stage:    StageFiled,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Confirm filing acceptance for {{client_name}}",
						DescriptionPattern:       "Track the submission until the taxing authority acknowledges acceptance.",
						Category:                 WorkFiling,
						Priority:                 PriorityHigh,
						EstimatedDurationMinutes: 10,
					},
					{
						TitlePattern:             "Send filing confirmation to {{client_name}}",
						DescriptionPattern:       "Email {{client_name}} the acceptance confirmation and closing summary.",
						Category:                 WorkCommunication,
						Priority:                 PriorityMedium,
						EstimatedDurationMinutes: 10,
					},
				},
			},
			{
				Category: CategoryBusiness,
				Stage:    StageIntakeComplete,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Collect entity and payroll records for {{client_name}}",
						DescriptionPattern:       "Request formation documents, prior-year returns, and payroll summaries from {{client_name}}.",
						Category:                 WorkDocumentCollection,
						Priority:                 PriorityHigh,
						EstimatedDurationMinutes: 60,
						CompletionTriggers:       []string{"document_collection_setup"},
					},
					{
						TitlePattern:             "Review bookkeeping status for {{client_name}}",
						DescriptionPattern:       "Assess whether {{client_name}}'s books are reconciled through year end.",
						Category:                 WorkReview,
						Priority:                 PriorityMedium,
						EstimatedDurationMinutes: 45,
					},
				},
			},
			{
				Category: CategoryBusiness,
				Stage:    StageDocumentsPending,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Review uploaded records for {{client_name}}",
						DescriptionPattern:       "Verify financial statements and supporting schedules uploaded by {{client_name}}.",
						Category:                 WorkReview,
						Priority:                 PriorityHigh,
						EstimatedDurationMinutes: 90,
						CompletionTriggers:       []string{"document_review_complete"},
					},
				},
			},
			{
				Category: CategoryBusiness,
				Stage:    StageFormsGenerated,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Review generated return for {{client_name}}",
						DescriptionPattern:       "Check the generated business return against the trial balance.",
						Category:                 WorkReview,
						Priority:                 PriorityUrgent,
						EstimatedDurationMinutes: 120,
						CompletionTriggers:       []string{"return_review_complete"},
					},
				},
			},
			{
				Category: CategoryBusiness,
				Stage:    StageFiled,
				Tasks: []TaskTemplate{
					{
						TitlePattern:             "Confirm filing acceptance for {{client_name}}",
						DescriptionPattern:       "Track the submission until the taxing authority acknowledges acceptance.",
						Category:                 WorkFiling,
						Priority:                 PriorityHigh,
						EstimatedDurationMinutes: 10,
					},
				},
			},
		},
		FollowUps: map[string]TaskTemplate{
			"document_collection_setup": {
				TitlePattern:             "Set up document checklist for {{client_name}}",
				DescriptionPattern:       "Create the document checklist and share the upload link with {{client_name}}.",
				Category:                 WorkDocumentCollection,
				Priority:                 PriorityMedium,
				EstimatedDurationMinutes: 15,
			},
			"document_review_complete": {
				TitlePattern:             "Prepare draft return for {{client_name}}",
				DescriptionPattern:       "Enter reviewed documents into the preparation system and generate a draft return.",
				Category:                 WorkPreparation,
				Priority:                 PriorityHigh,
				EstimatedDurationMinutes: 90,
				CompletionTriggers:       []string{"draft_ready_notice"},
			},
			"draft_ready_notice": {
				TitlePattern:             "Notify {{client_name}} that the draft return is ready",
				DescriptionPattern:       "Send {{client_name}} the draft return for review and signature.",
				Category:                 WorkCommunication,
				Priority:                 PriorityMedium,
				EstimatedDurationMinutes: 10,
			},
			"return_review_complete": {
				TitlePattern:             "Queue filing submission for {{client_name}}",
				DescriptionPattern:       "Submit the approved return for electronic filing.",
				Category:                 WorkFiling,
				Priority:                 PriorityUrgent,
				EstimatedDurationMinutes: 15,
			},
		},
	}
}
