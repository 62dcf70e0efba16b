// Copyright (C) 2025 salt contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
)

// rsaOAEPEncrypt and rsaOAEPDecrypt wrap the RSA-OAEP (SHA-1 MGF1)
// transport used for the session key and the sign-in token, matching the
// original's RSA.pkcs1_oaep_padding convention.

func rsaOAEPEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plaintext, nil)
}

func rsaOAEPDecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, ciphertext, nil)
}
