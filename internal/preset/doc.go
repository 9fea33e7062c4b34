// Package preset parses Lightroom XMP presets and protects them at rest.
//
// Adjustment values live as camera-raw attributes on rdf:Description elements;
// Parse extracts the numeric ones the engine understands and keeps the rest as
// extras. Protected presets are zlib-compressed, sealed with AES-256-GCM, and
// base64-encoded; the key derives from the FOCAL_PRESET_KEY passphrase via
// PBKDF2. Load handles both forms transparently based on file extension.
package preset
