package types

import "time"

type NoticeEvent string

const (
	NoticeDonorApproved       NoticeEvent = "donor.approved"
	NoticeDonorRejected       NoticeEvent = "donor.rejected"
	NoticeSchoolApproved      NoticeEvent = "school.approved"
	NoticeSchoolRejected      NoticeEvent = "school.rejected"
	NoticeDonationScreened    NoticeEvent = "donation.screened"
	NoticeDonationApproved    NoticeEvent = "donation.approved"
	NoticeDonationRejected    NoticeEvent = "donation.rejected"
	NoticeApplicationApproved NoticeEvent = "application.approved"
	NoticeApplicationRejected NoticeEvent = "application.rejected"
	NoticeMatchApproved       NoticeEvent = "match.approved"
)

// Notice is the payload handed to the notification dispatcher on a state
// transition. Reason is set for rejections only.
type Notice struct {
	Event      NoticeEvent `json:"event"`
	EntityID   string      `json:"entityId"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Title      string      `json:"title,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}
