package diskbackend

import (
	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
)

const (
	sectorSizeBytes  = 512
	alignmentBytes   = 1024 * 1024 // 1MiB alignment for partition starts
	mibBytes         = 1024 * 1024
)

// PartitionGeometry is one partition's resolved byte range within the disk.
type PartitionGeometry struct {
	Label     string
	Number    int // 1-based GPT partition number
	StartLBA  uint64
	EndLBA    uint64
	SizeBytes uint64
}

// ComputeGeometry lays out partitions back to back starting at a 1MiB
// offset. A partition's size is normally a positive MiB count; at most one
// partition per image may instead use a negative size, meaning "every byte
// left over after every other partition, minus |size| MiB held back" —
// e.g. size = -256 on the last partition reserves 256MiB of unused space at
// the end of the disk. This is the resolved "remainder partition"
// convention for an otherwise-unspecified partition size.
func ComputeGeometry(partitions []manifest.Partition, totalSizeMiB int64) ([]PartitionGeometry, error) {
	var explicitMiB int64
	remainderIdx := -1
	for i, p := range partitions {
		if p.SizeMiB < 0 {
			if remainderIdx != -1 {
				return nil, imgerr.New(imgerr.KindFailedToPartition,
					"at most one partition may use a negative (remainder) size, both %q and %q do",
					partitions[remainderIdx].Label, p.Label)
			}
			remainderIdx = i
			continue
		}
		explicitMiB += p.SizeMiB
	}

	sizesMiB := make([]int64, len(partitions))
	for i, p := range partitions {
		if p.SizeMiB >= 0 {
			sizesMiB[i] = p.SizeMiB
		}
	}
	if remainderIdx != -1 {
		reserve := -partitions[remainderIdx].SizeMiB
		remaining := totalSizeMiB - explicitMiB - reserve - 1 // -1MiB for the leading alignment gap
		if remaining <= 0 {
			return nil, imgerr.New(imgerr.KindFailedToPartition,
				"image size %dMiB too small for remainder partition %q (need >%dMiB more)",
				totalSizeMiB, partitions[remainderIdx].Label, -remaining)
		}
		sizesMiB[remainderIdx] = remaining
	}

	out := make([]PartitionGeometry, 0, len(partitions))
	offset := int64(alignmentBytes)
	for i, p := range partitions {
		sizeBytes := sizesMiB[i] * mibBytes
		if sizeBytes <= 0 {
			return nil, imgerr.New(imgerr.KindFailedToPartition, "partition %q resolved to non-positive size", p.Label)
		}
		startLBA := uint64(offset / sectorSizeBytes)
		endLBA := uint64((offset+sizeBytes)/sectorSizeBytes) - 1
		out = append(out, PartitionGeometry{
			Label:     p.Label,
			Number:    i + 1,
			StartLBA:  startLBA,
			EndLBA:    endLBA,
			SizeBytes: uint64(sizeBytes),
		})
		offset += sizeBytes
	}

	totalUsed := offset + alignmentBytes // trailing GPT backup header allowance
	if totalUsed > totalSizeMiB*mibBytes {
		return nil, imgerr.New(imgerr.KindFailedToPartition,
			"partitions require %dMiB but image is only %dMiB", totalUsed/mibBytes, totalSizeMiB)
	}
	return out, nil
}
