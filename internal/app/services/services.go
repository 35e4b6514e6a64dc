package services

// Services defined in this package:
// - AuthService: registration, login and refresh-token rotation
// - CommunityService: community lifecycle, join requests, member listing
// - ApprovalService: promotes pending members, links approved heads to
//   their household
// - HouseholdService: headship transfer, capacity-gated admission,
//   removal and invitations
// - AccessCodeService: issuance and host-side management of codes
// - VerificationService: gate scans and entry-log listing
//
// The three engine services (approval, household, verification) are
// written against narrow store interfaces so their invariants can be
// exercised with in-memory fakes; the pgx repositories satisfy those
// interfaces in production.
