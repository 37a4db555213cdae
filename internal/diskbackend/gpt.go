package diskbackend

import (
	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// WriteGPT creates (or truncates) the backing file at path to totalSizeMiB
// and writes a GPT partition table over it matching geoms.
func WriteGPT(path string, totalSizeMiB int64, geoms []PartitionGeometry) error {
	size := totalSizeMiB * mibBytes

	d, err := diskfs.Create(path, size, diskfs.SectorSizeDefault)
	if err != nil {
		return imgerr.Wrap(imgerr.KindFailedToCreateImage, err, "creating disk backing file %q", path)
	}
	defer d.Close()

	table := &gpt.Table{
		ProtectiveMBR:      true,
		LogicalSectorSize:  sectorSizeBytes,
		PhysicalSectorSize: sectorSizeBytes,
	}
	for _, g := range geoms {
		table.Partitions = append(table.Partitions, &gpt.Partition{
			Start: g.StartLBA,
			End:   g.EndLBA,
			Size:  g.SizeBytes,
			Name:  g.Label,
			Type:  gpt.LinuxFilesystem,
		})
	}

	if err := d.Partition(table); err != nil {
		return imgerr.Wrap(imgerr.KindFailedToPartition, err, "writing GPT table to %q", path)
	}
	log.Infow("partitioned disk image", "path", path, "partitions", len(geoms))
	return nil
}
