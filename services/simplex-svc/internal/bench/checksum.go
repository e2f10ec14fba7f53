package bench

// FNV-1a параметры
const (
	ChecksumBasis uint32 = 0x811c9dc5
	ChecksumPrime uint32 = 0x01000193
)

// ChecksumInit начальное значение контрольной суммы
func ChecksumInit() uint32 { return ChecksumBasis }

// ChecksumUpdate добавляет 32-битное значение
func ChecksumUpdate(csum, value uint32) uint32 {
	csum ^= value
	csum *= ChecksumPrime
	return csum
}

// ChecksumInt64 добавляет младшие, затем старшие 32 бита
func ChecksumInt64(csum uint32, value int64) uint32 {
	csum = ChecksumUpdate(csum, uint32(value))
	return ChecksumUpdate(csum, uint32(uint64(value)>>32))
}
