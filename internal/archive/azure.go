// Package archive stores export artifacts in Azure Blob Storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
)

// AzureArchive keeps export artifacts in a blob container.
type AzureArchive struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureArchive implements Archive
var _ Archive = (*AzureArchive)(nil)

// NewAzureArchive creates an archive backed by Azure Blob Storage, using
// managed identity for authentication.
func NewAzureArchive(accountName, containerName string) (*AzureArchive, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	a := &AzureArchive{
		client:        client,
		containerName: containerName,
	}

	if err := a.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return a, nil
}

func (a *AzureArchive) ensureContainer() error {
	ctx := context.Background()

	_, err := a.client.CreateContainer(ctx, a.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", a.containerName)
	} else {
		logrus.Infof("Created container %s", a.containerName)
	}

	return nil
}

// Store uploads an artifact.
func (a *AzureArchive) Store(name string, data []byte) error {
	ctx := context.Background()

	_, err := a.client.UploadBuffer(ctx, a.containerName, name, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	logrus.Infof("Stored %s in export archive", name)
	return nil
}

// Retrieve downloads an artifact.
func (a *AzureArchive) Retrieve(name string) ([]byte, error) {
	ctx := context.Background()

	response, err := a.client.DownloadStream(ctx, a.containerName, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}

	return data, nil
}

// List returns artifact names under a prefix.
func (a *AzureArchive) List(prefix string) ([]string, error) {
	ctx := context.Background()

	var names []string
	pager := a.client.NewListBlobsFlatPager(a.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				names = append(names, *blob.Name)
			}
		}
	}

	return names, nil
}

// Delete removes an artifact.
func (a *AzureArchive) Delete(name string) error {
	ctx := context.Background()

	_, err := a.client.DeleteBlob(ctx, a.containerName, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}

	logrus.Infof("Deleted %s from export archive", name)
	return nil
}
