// go-st25r
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-st25r.
//
// go-st25r is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-st25r is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-st25r; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package st25r

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNDEF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg        *ndef.Message
		name       string
		longLength bool
	}{
		{name: "ShortText", msg: ndef.NewTextMessage("hello", "en")},
		{name: "ShortURI", msg: ndef.NewURIMessage("https://zaparoo.org")},
		{name: "LongText", msg: ndef.NewTextMessage(strings.Repeat("x", 400), "en"), longLength: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, err := tt.msg.Marshal()
			require.NoError(t, err)

			out, err := EncodeNDEF(tt.msg)
			require.NoError(t, err)

			assert.Equal(t, byte(tlvNDEF), out[0])
			assert.Equal(t, byte(tlvTerminator), out[len(out)-1])

			if tt.longLength {
				assert.Equal(t, byte(tlvLongLength), out[1])
				assert.Equal(t, len(body), int(out[2])<<8|int(out[3]))
				assert.True(t, bytes.Equal(body, out[4:len(out)-1]))
				return
			}
			assert.Equal(t, len(body), int(out[1]))
			assert.True(t, bytes.Equal(body, out[2:len(out)-1]))
		})
	}
}

func TestEncodeNDEF_Nil(t *testing.T) {
	t.Parallel()
	_, err := EncodeNDEF(nil)
	assert.Error(t, err)
}

func TestDevice_RequestWriteText(t *testing.T) {
	t.Parallel()

	device, mock, log := newTestDevice(t)
	require.NoError(t, device.RequestWriteText("hello", ""))

	for i := 0; i < 20 && device.IsWriting(); i++ {
		require.NoError(t, device.Tick(context.Background()))
	}

	results := log.writes()
	require.Len(t, results, 1)
	assert.True(t, results[0].Success())

	var written []byte
	for i, w := range mock.Writes() {
		assert.Equal(t, byte(DefaultWriteStartBlock+i), w.Address)
		written = append(written, w.Data...)
	}
	expected, err := EncodeNDEF(ndef.NewTextMessage("hello", "en"))
	require.NoError(t, err)
	assert.Equal(t, expected, written[:len(expected)])
}

func TestDevice_RequestClean(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	require.NoError(t, device.RequestClean())
	require.NoError(t, device.Tick(context.Background()))

	writes := mock.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, byte(DefaultWriteStartBlock), writes[0].Address)
	assert.Equal(t, []byte{tlvNDEF, 0x00, tlvTerminator, 0x00}, writes[0].Data)
}

func TestDevice_RequestFormat(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)
	require.NoError(t, device.RequestFormat())
	require.NoError(t, device.Tick(context.Background()))
	require.NoError(t, device.Tick(context.Background()))

	writes := mock.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, byte(ccBlock), writes[0].Address)
	assert.Equal(t, capabilityContainer, writes[0].Data)
	assert.Equal(t, byte(ccBlock+1), writes[1].Address)
	assert.False(t, device.IsWriting())
}
