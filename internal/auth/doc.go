// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

// Package auth implements the FatecMeets account and session token engine.
//
// Three services cover the credential lifecycle:
//
//   - RegistrationService: account creation with emailed verification
//     codes, the one-way inactive -> active transition, and gamification
//     nickname provisioning.
//   - ChallengeService: password-gated one-time login codes with a
//     per-account send-rate limit and a hard attempt cap.
//   - TokenService: opaque access/refresh pairs, access rotation from a
//     refresh token, and logical revocation.
//
// Persistence, password hashing and outbound mail are injected through the
// repository and capability interfaces defined alongside the entities.
// Every error returned across the package boundary is an oops error whose
// code is one of the taxonomy constants in errors.go.
package auth
