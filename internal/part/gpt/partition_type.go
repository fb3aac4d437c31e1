// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package gpt

import "github.com/google/uuid"

// Well-known partition type GUIDs. Only the handful the CLI exposes as short
// aliases are named here; any other type is addressed by raw GUID.
var (
	TypeMicrosoftBasicData  = uuid.MustParse("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")
	TypeMicrosoftReserved   = uuid.MustParse("E3C9E316-0B5C-4DB8-817D-F92DF00215AE")
	TypeEFISystem           = uuid.MustParse("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")
	TypeLinuxFilesystem     = uuid.MustParse("0FC63DAF-8483-4772-8E79-3D69D8477DE4")
	TypeLinuxSwap           = uuid.MustParse("0657FD6D-A4AB-43C4-84E5-0933C84B4F4F")
)

// typeAliases maps the short names the CLI accepts for -t/--type flags to
// their GUID.
var typeAliases = map[string]uuid.UUID{
	"msbasic":    TypeMicrosoftBasicData,
	"msreserved": TypeMicrosoftReserved,
	"efi":        TypeEFISystem,
	"esp":        TypeEFISystem,
	"linux":      TypeLinuxFilesystem,
	"linux-swap": TypeLinuxSwap,
}

// ParseTypeAlias resolves a short partition-type name to its GUID. ok is
// false if name is not a recognized alias.
func ParseTypeAlias(name string) (id uuid.UUID, ok bool) {
	id, ok = typeAliases[name]
	return id, ok
}

// typeNames maps a handful of well-known type GUIDs back to a human
// readable name, for display in dump output. Like typeAliases it covers only
// the types named above; callers fall back to printing the raw GUID.
var typeNames = map[uuid.UUID]string{
	TypeMicrosoftBasicData: "Microsoft basic data",
	TypeMicrosoftReserved:  "Microsoft reserved",
	TypeEFISystem:          "EFI System",
	TypeLinuxFilesystem:    "Linux filesystem",
	TypeLinuxSwap:          "Linux swap",
}

// TypeName returns a short human-readable name for id, if known.
func TypeName(id uuid.UUID) (string, bool) {
	name, ok := typeNames[id]
	return name, ok
}
