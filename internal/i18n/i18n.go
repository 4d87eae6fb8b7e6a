// Package i18n holds the user-facing messages of the API in the supported
// languages.
package i18n

import "strings"

type Language string

const (
	Indonesian Language = "id"
	English    Language = "en"
)

// Default is used when no preference is set.
const Default = Indonesian

// ParseLanguage accepts "id", "en" and regional variants such as "en-US".
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	switch Language(s) {
	case Indonesian, English:
		return Language(s), true
	}
	return "", false
}

type Key string

const (
	ProcessFailed   Key = "process_failed"
	WrongPassword   Key = "wrong_password"
	InvalidPDF      Key = "invalid_pdf"
	InvalidImage    Key = "invalid_image"
	FileTooLarge    Key = "file_too_large"
	FileNotFound    Key = "file_not_found"
	SessionNotFound Key = "session_not_found"
	PageOutOfRange  Key = "page_out_of_range"
	NoPagesSelected Key = "no_pages_selected"
	AllPagesDeleted Key = "all_pages_deleted"
	InvalidRotation Key = "invalid_rotation"
	InvalidRequest  Key = "invalid_request"
	NoFiles         Key = "no_files"
	JobRunning      Key = "job_running"
	NoJob           Key = "no_job"
	Canceled        Key = "canceled"
	NoImages        Key = "no_images"
	UnknownTool     Key = "unknown_tool"
	NoForm          Key = "no_form"
)

var messages = map[Key]map[Language]string{
	ProcessFailed: {
		Indonesian: "Gagal memproses file",
		English:    "Failed to process file",
	},
	WrongPassword: {
		Indonesian: "Kata sandi salah",
		English:    "Wrong password",
	},
	InvalidPDF: {
		Indonesian: "File bukan PDF yang valid",
		English:    "Uploaded file is not a valid PDF",
	},
	InvalidImage: {
		Indonesian: "Format gambar tidak didukung",
		English:    "Unsupported image format",
	},
	FileTooLarge: {
		Indonesian: "File terlalu besar",
		English:    "File too large",
	},
	FileNotFound: {
		Indonesian: "File tidak ditemukan",
		English:    "File not found",
	},
	SessionNotFound: {
		Indonesian: "Sesi tidak ditemukan",
		English:    "Session not found",
	},
	PageOutOfRange: {
		Indonesian: "Nomor halaman di luar jangkauan",
		English:    "Page number out of range",
	},
	NoPagesSelected: {
		Indonesian: "Tidak ada halaman yang dipilih",
		English:    "No pages selected",
	},
	AllPagesDeleted: {
		Indonesian: "Tidak dapat menghapus semua halaman",
		English:    "Cannot delete every page",
	},
	InvalidRotation: {
		Indonesian: "Rotasi harus kelipatan 90 derajat",
		English:    "Rotation must be a multiple of 90 degrees",
	},
	InvalidRequest: {
		Indonesian: "Permintaan tidak valid",
		English:    "Invalid request",
	},
	NoFiles: {
		Indonesian: "Tidak ada file untuk diproses",
		English:    "No files to process",
	},
	JobRunning: {
		Indonesian: "Proses lain sedang berjalan",
		English:    "Another operation is in progress",
	},
	NoJob: {
		Indonesian: "Tidak ada proses",
		English:    "No operation found",
	},
	Canceled: {
		Indonesian: "Proses dibatalkan",
		English:    "Operation canceled",
	},
	NoImages: {
		Indonesian: "Tidak ada gambar di dalam dokumen",
		English:    "The document contains no images",
	},
	UnknownTool: {
		Indonesian: "Alat tidak dikenal",
		English:    "Unknown tool",
	},
	NoForm: {
		Indonesian: "Dokumen tidak memiliki isian formulir",
		English:    "The document has no form fields",
	},
}

// Message returns the text for key in lang, falling back to English and
// then to the key itself.
func Message(lang Language, key Key) string {
	m, ok := messages[key]
	if !ok {
		return string(key)
	}
	if s, ok := m[lang]; ok {
		return s
	}
	return m[English]
}
