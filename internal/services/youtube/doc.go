// Package youtube publishes rendered clips through the YouTube Data API
// resumable upload flow.
package youtube
