// Package loyaltyapi is the outbound client for the loyalty vendor's public API.
//
// Two calls are made: a user lookup used to personalize the form, and a PATCH
// that moves the user into the discount group. Each is a single attempt.
package loyaltyapi
