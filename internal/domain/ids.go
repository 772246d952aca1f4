package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// GuideID identifies the guide who authors a tour. In v1 it is the caller's subject.
type GuideID string

// TourID is an internal identifier for a persisted tour record.
// It does not exist until the first successful submission.
type TourID string

// StopID identifies a stop within a tour draft.
type StopID string

// MediaID identifies a media item within a stop.
type MediaID string

// SessionID identifies a draft (form) session.
type SessionID string
