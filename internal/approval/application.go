package approval

import (
	"context"
	"strings"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"
)

type ApplicationInput struct {
	Title       string   `json:"applicationTitle" form:"application_title"`
	Description string   `json:"description" form:"description"`
	ItemsNeeded []string `json:"itemsNeeded" form:"items_needed"`
}

func (in ApplicationInput) validate() (string, []string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", nil, validation("An application title is required.")
	}

	items := make([]string, 0, len(in.ItemsNeeded))
	for _, item := range in.ItemsNeeded {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return title, items, nil
}

// CreateApplication opens a draft for the signed-in school.
func (s *Service) CreateApplication(ctx context.Context, input ApplicationInput) Result {
	return s.run("create_application", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleSchool)
		if err != nil {
			return nil, err
		}

		title, items, err := input.validate()
		if err != nil {
			return nil, err
		}

		application := &types.ResourceApplication{
			SchoolID:         actor.ID,
			ApplicationTitle: title,
			Description:      utils.TrimmedPtr(input.Description),
			ItemsNeeded:      items,
			Status:           types.ApplicationStatusDraft,
		}

		if err := s.Applications.CreateApplication(ctx, application); err != nil {
			return nil, err
		}

		return application, nil
	})
}

// ownApplication loads an application and checks the actor's school owns it.
func (s *Service) ownApplication(ctx context.Context, applicationID string) (*types.ResourceApplication, error) {
	actor, err := s.actor(ctx, types.RoleSchool)
	if err != nil {
		return nil, err
	}

	application, err := s.Applications.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if application.SchoolID != actor.ID {
		return nil, unauthorized("This application belongs to another school.")
	}

	return application, nil
}

func (s *Service) UpdateApplication(ctx context.Context, applicationID string, input ApplicationInput) Result {
	return s.run("update_application", func() (any, error) {
		application, err := s.ownApplication(ctx, applicationID)
		if err != nil {
			return nil, err
		}

		if !application.Status.Editable() {
			return nil, invalidState("Application is %s and can no longer be edited.", application.Status)
		}

		title, items, err := input.validate()
		if err != nil {
			return nil, err
		}

		update := &types.ApplicationUpdate{
			ApplicationTitle: utils.Ptr(title),
			Description:      utils.TrimmedPtr(input.Description),
			ItemsNeeded:      utils.Ptr(items),
		}

		err = s.Applications.TransitionApplication(ctx, applicationID, []types.ApplicationStatus{application.Status}, update)
		if err != nil {
			return nil, err
		}

		application.ApplicationTitle = title
		application.ItemsNeeded = items
		if update.Description != nil {
			application.Description = update.Description
		}
		return application, nil
	})
}

// SubmitApplication sends a draft, or a rejected application after edits,
// to admin review.
func (s *Service) SubmitApplication(ctx context.Context, applicationID string) Result {
	return s.run("submit_application", func() (any, error) {
		application, err := s.ownApplication(ctx, applicationID)
		if err != nil {
			return nil, err
		}

		if !application.Status.Editable() {
			return nil, invalidState("Application is already %s.", application.Status)
		}

		now := s.now()
		err = s.Applications.TransitionApplication(ctx, applicationID,
			[]types.ApplicationStatus{types.ApplicationStatusDraft, types.ApplicationStatusRejected},
			&types.ApplicationUpdate{
				Status:      utils.Ptr(types.ApplicationStatusPending),
				SubmittedAt: utils.Ptr(now),
			})
		if err != nil {
			return nil, err
		}

		application.Status = types.ApplicationStatusPending
		application.SubmittedAt = utils.Ptr(now)
		return application, nil
	})
}

func (s *Service) ApproveApplication(ctx context.Context, applicationID string) Result {
	return s.run("approve_application", func() (any, error) {
		return s.reviewApplication(ctx, applicationID, types.ApplicationStatusApproved, nil)
	})
}

func (s *Service) RejectApplication(ctx context.Context, applicationID, reason string) Result {
	return s.run("reject_application", func() (any, error) {
		return s.reviewApplication(ctx, applicationID, types.ApplicationStatusRejected, utils.Ptr(reason))
	})
}

func (s *Service) reviewApplication(ctx context.Context, applicationID string, to types.ApplicationStatus, reason *string) (*types.ResourceApplication, error) {
	actor, err := s.actor(ctx, types.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if to == types.ApplicationStatusRejected {
		trimmed, err := requireReason(utils.Deref(reason))
		if err != nil {
			return nil, err
		}
		reason = utils.Ptr(trimmed)
	}

	application, err := s.Applications.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if application.Status != types.ApplicationStatusPending {
		return nil, invalidState("Application is %s, only pending applications can be reviewed.", application.Status)
	}

	now := s.now()
	err = s.Applications.TransitionApplication(ctx, applicationID,
		[]types.ApplicationStatus{types.ApplicationStatusPending},
		&types.ApplicationUpdate{
			Status:          utils.Ptr(to),
			RejectionReason: reason,
			ReviewedBy:      utils.Ptr(actor.ID),
			ReviewedAt:      utils.Ptr(now),
		})
	if err != nil {
		return nil, err
	}

	application.Status = to
	application.ReviewedBy = utils.Ptr(actor.ID)
	application.ReviewedAt = utils.Ptr(now)
	if reason != nil {
		application.RejectionReason = reason
	}

	notice := types.Notice{
		EntityID: application.ID,
		Title:    application.ApplicationTitle,
	}
	if school, err := s.Profiles.Profile(ctx, application.SchoolID); err == nil {
		notice.Email, notice.Name = school.Email, school.FullName
	}

	if to == types.ApplicationStatusApproved {
		notice.Event = types.NoticeApplicationApproved
		s.notifyApproval(ctx, notice)
	} else {
		notice.Event = types.NoticeApplicationRejected
		notice.Reason = utils.Deref(reason)
		s.notifyRejection(ctx, notice)
	}

	return application, nil
}

// SchoolApplications lists the signed-in school's applications.
func (s *Service) SchoolApplications(ctx context.Context) Result {
	return s.run("school_applications", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleSchool)
		if err != nil {
			return nil, err
		}
		return s.Applications.ApplicationsBySchool(ctx, actor.ID)
	})
}
