// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package archive implements a deterministic, order-preserving codec for
// packing named blobs into a single linear archive and unpacking such
// archives back into entries. The on-disk layout is tar-compatible (512-byte
// header blocks, octal numeric fields, header checksum, two-zero-block
// terminator) so that produced bundles can be opened by standard unarchiving
// tools. Unpacking is tolerant: corrupt or truncated input yields whatever
// well-formed entries precede the damage.
package archive
